// Package aem implements the block library the page bootstrap relies on:
// block construction, button/icon/section/block decoration, page metadata and
// head resource insertion. All functions mutate the tree in place and are
// idempotent, so running them over an already decorated page changes nothing.
package aem
