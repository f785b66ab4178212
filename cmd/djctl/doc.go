// Command djctl inspects the beat-matching engine from a terminal: Camelot
// lookups, pairwise compatibility between catalog tracks, and one-off queue
// builds without a running API server.
package main
