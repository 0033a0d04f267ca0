//go:build !debugdedup

package online

const minDistanceDuplicateNm = 30
