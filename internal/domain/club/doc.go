// Package club holds the records the ledger reads but does not own:
// members, services, collectors and reservations. They are maintained by
// the surrounding back office; the ledger only writes the cancellation
// fields of a reservation.
package club
