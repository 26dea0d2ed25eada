// Package validate checks an editing graph against the structural rules of a
// pipeline runtime.
//
// A [Validator] runs, in order and without short-circuiting:
//
//  1. connectivity ([NotConnected])
//  2. required properties, recursing into filled-in nested objects
//     ([MissingField] at the node root, [MissingProperty] below it)
//  3. per-type cardinality ([NodeCountLimit])
//  4. required direct parents ([RequiredDirectlyDownstream])
//  5. forbidden direct parents ([ProhibitedDirectlyDownstream])
//  6. forbidden ancestors ([ProhibitedAnyDownstream])
//
// Findings reported elsewhere, such as by a remote save attempt, are passed
// as external [ServerError] values and appended. Validation never fails: the
// result is a possibly empty list the caller uses to gate saving.
//
// Rule tables are plain data. [DefaultRules] encodes the Azure Video
// Analyzer edge constraints; [LoadRules] reads a TOML table for other
// runtimes.
package validate
