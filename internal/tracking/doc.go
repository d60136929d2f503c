// Package tracking is the stage state machine for products on a line.
//
// A Track holds one product and its stage history ordered by configured
// stage position. Rows form a prefix-completion chain:
//   - stage k may be started only once stage k-1 is finished (k > 1)
//   - a stage may be finished only once it is started
//
// Start and Finish mutate a Track in memory and return the changed row;
// callers persist that row inside the same store transaction they loaded
// the track from. Build skips products whose stored history is malformed and
// reports them separately. Selection helpers pick the lowest product id when
// several products qualify for a transition.
package tracking
