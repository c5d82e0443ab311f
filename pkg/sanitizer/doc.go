// Package sanitizer provides input normalization for user supplied text.
//
// All normalization functions are idempotent: applying them multiple times produces
// the same result. They never fail; invalid input normalizes to an empty string.
//
// Normalization includes:
//   - Ids: trim surrounding whitespace
//   - Single-line strings: collapse whitespace runs into one space
//   - Message content: unify line endings, drop control characters, trim each
//     line's trailing spaces and cap runs of blank lines
package sanitizer
