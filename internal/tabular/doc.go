// Package tabular holds the in-memory table shape shared by every export the
// deprovisioning tool reads, plus the column resolver that maps logical fields
// onto locale-varying headers.
//
// A [Table] is deliberately dumb: ordered headers and rows of loosely typed
// cells. Nothing in this package knows about groups, mailboxes or devices.
//
// # Column Resolution
//
// Exports come from different tools and in different languages, so the same
// logical field can be "Group", "Gruppo", "group_name" or "NomeGruppo". Callers
// describe a field with an ordered [Candidates] list and [Resolve] picks the
// header:
//
//  1. Exact pass: candidates in order, first header whose [Normalize]d form
//     equals the normalized candidate.
//  2. Containment pass (only when the exact pass found nothing): candidates in
//     order, headers in table order, first header whose normalized form
//     contains the normalized candidate.
//
// Resolution depends only on the header list and the candidates.
//
// # Readers
//
// [Read] dispatches on the file extension: .xlsx/.xlsm go through excelize,
// everything else is parsed as delimited text with the delimiter sniffed from
// the header line.
package tabular
