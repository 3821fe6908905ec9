// Package parser provides parsing functionality for Sqitch plan files.
// It turns the line-oriented plan format into an ordered list of changes,
// each with its prerequisite changes and free-text note, and records the
// pragma and tag lines it skips.
package parser
