// Package core turns identity and group exports into a deprovisioning
// checklist and the records the provisioning scripts consume.
//
// It performs no I/O and keeps no state between runs: the web server and the
// CLI parse uploads into [tabular.Table] values and hand them to an [Engine]
// (usually through a [Service], which also logs and records history).
//
// # Pipeline
//
//  1. Each export is searched for its logical columns using the candidate
//     spellings in a [Catalog]. English and Italian headers are accepted in
//     any order.
//  2. [Extract] pulls the identity's distribution lists, shared mailboxes,
//     AD groups and Entra groups. Shared mailbox exports without a member
//     column fall back to a free-text member list.
//  3. [Reconcile] removes from the Entra groups everything already handled
//     by the DL, SM or AD steps, plus the [Exclusions].
//  4. The checklist stages run in a fixed order. A conditional stage with
//     nothing to do emits a warning instead of a step, and numbering stays
//     contiguous.
//  5. The identity record and, when a matching computer exists, the device
//     record are filled and encoded.
//
// # Error Handling
//
// Missing columns and absent exports never fail a run; they show up as
// checklist warnings or [Result.Notices]. Transport errors are mapped to
// coded user messages with [MapError]:
//
//   - ID001: identity errors
//   - FILE001-FILE005: upload parsing errors
//   - UPL002-UPL005: capacity and request lifecycle
//   - DB001-DB006: run history
//   - AUTH001-AUTH002, RATE001: access control
package core
