// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers (ToDomain/FromDomain) convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - club.go: Club directory models (Member, Service, Collector, Reservation)
// - ledger.go: Ledger models (Movement, Payment, Refinancing, CommissionSettlement)
//
// JSON columns (allocations, schedules, audit trails, id lists) use the domain
// slice types, which implement driver.Valuer and sql.Scanner. They are jsonb on
// PostgreSQL and plain text on SQLite.
package models
