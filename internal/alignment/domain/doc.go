// Package domain holds the pure alignment workflow model: the status
// machine, question templates, typed answers, analysis reports,
// conflict resolutions with their merge rules, and the canonical
// snapshot signed at finalization. Everything here is side-effect free;
// persistence and transport live in sibling packages.
package domain
