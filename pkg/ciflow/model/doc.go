// Package model provides the data structures shared by the ciflow packages.
// It defines jobs and their terminal outcomes, trigger contexts and filters,
// per-job results and the final pipeline verdict.
package model
