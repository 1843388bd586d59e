// Package loader runs the staged page load: eager, lazy, delayed.
//
// Phases run strictly in order and each is fully awaited before the next
// begins. Within a phase only the LCP wait and block loading can abort the
// load; every other step is best effort and reported to the observer as an
// outcome.Result.
package loader
