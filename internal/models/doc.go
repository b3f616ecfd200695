// Package models defines the core domain models for splitcheck.
//
// # Current Models
//
//   - Receipt: a scanned or hand-built bill, the unit of storage and sharing
//   - Person: a participant on a receipt, identified by id within that receipt
//   - LineItem: an individual purchase on the receipt, split by weighted portions
//   - Adjustment: a surcharge, tip or discount apportioned by a SplitMethod
//   - PersonPortion: one person's integer weight on a line item or adjustment
//
// A Receipt is created local-only and may later be promoted to a shared cloud
// record. Promotion stamps the cloud-only fields (DeviceID, OwnerID, ShareKey,
// IsShared, LastSyncedAt); a receipt that has never been promoted carries none
// of them.
//
// # Design Principles
//
//  1. **Document shape is the wire shape**: JSON tags mirror the HTTP payloads
//     and the local container exactly, so a receipt round-trips byte-stable.
//  2. **Integer cents everywhere**: monetary amounts are int64 cents; no floats
//     in the domain layer.
//  3. **Avoid circular references**: portions carry person ids, not pointers.
//  4. **Explicit charge variant**: code that treats line items and adjustments
//     uniformly goes through Charge with a Kind discriminant instead of
//     sniffing which fields are set.
package models
