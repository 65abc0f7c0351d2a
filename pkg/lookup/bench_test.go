package lookup

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/code"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// syntheticIndex builds n stations named "STAZIONE 0000" onwards.
func syntheticIndex(n int) *Index {
	stations := make([]Station, 0, n)
	for i := 0; i < n; i++ {
		c := code.Code([]byte{byte('A' + i%26), byte('A' + i/26%26), byte('A' + i/676%26)})
		stations = append(stations, Station{
			Code:      c,
			SourceID:  fmt.Sprintf("S%05d", i),
			Name:      fmt.Sprintf("STAZIONE %04d", i),
			Lat:       float64(i%90) / 2,
			Lon:       float64(i%180) / 2,
			HasCoords: true,
		})
	}
	return New(stations)
}

// 1000 stations, 5 different inputs
func BenchmarkFind(b *testing.B) {
	idx := syntheticIndex(1000)
	inputs := []string{"stazione 0123", "STAZOINE 0456", "stazion 0789", "STAZIONE 9999", "napoli"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Find(inputs[i%len(inputs)])
	}
}

func BenchmarkComplete(b *testing.B) {
	idx := syntheticIndex(1000)
	prefixes := []string{"S", "STA", "STAZIONE 0", "STAZIONE 01", "X"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Complete(prefixes[i%len(prefixes)], 10)
	}
}

func BenchmarkNearest(b *testing.B) {
	idx := syntheticIndex(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Nearest(float64(i%90)/2, float64(i%180)/2)
	}
}

func TestLookupMemoryStable(t *testing.T) {
	if testing.Short() {
		t.Skip("memory check skipped in short mode")
	}
	idx := syntheticIndex(1000)
	prefixes := []string{"S", "ST", "STAZIONE 1", "STAZIONE 19"}
	const iterations = 100

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	for i := 0; i < iterations; i++ {
		for _, prefix := range prefixes {
			_ = idx.Complete(prefix, 10)
			_, _, _ = idx.Find(prefix)
		}
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)

	memDelta := int64(final.Alloc) - int64(baseline.Alloc)
	totalOps := iterations * len(prefixes) * 2
	memPerOp := float64(memDelta) / float64(totalOps)
	goroutineDelta := runtime.NumGoroutine() - baselineGoroutines

	t.Logf("ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d", totalOps, memDelta, memPerOp, goroutineDelta)

	if memPerOp > 1000 {
		t.Errorf("excessive retained memory per operation: %.2f bytes", memPerOp)
	}
	if goroutineDelta > 0 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}
