// Package singleflight coalesces concurrent identical requests by key. It
// is deliberately not golang.org/x/sync/singleflight: that package has no
// "join without starting" call, and spec §4.7 requires one (TryPiggyback).
package singleflight
