package providers

import "sync"

// fanOut runs fn(0..n-1) concurrently and waits for all of them. Each fn
// writes only to its own pre-sized slot, so no further synchronization is
// needed by callers.
func fanOut(n int, fn func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}
