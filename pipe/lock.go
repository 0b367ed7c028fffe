//go:build !tinygo

package pipe

import "sync"

// links serializes changes of the graph. Input is parsed and elements are
// (de)registered from different goroutines on hosted targets.
var links sync.Mutex

func lock()   { links.Lock() }
func unlock() { links.Unlock() }
