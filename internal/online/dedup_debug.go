//go:build debugdedup

package online

// Synthetic test traffic is often far from the online position.
const minDistanceDuplicateNm = 900
