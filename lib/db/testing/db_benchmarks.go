package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/vaultkv/vaultkv/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementation
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory())
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, factory())
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory())
	})

	b.Run("Has", func(b *testing.B) {
		benchmarkHas(b, factory())
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.KVDB) {
	value := []byte("benchmark-value")

	b.ResetTimer()
	var i atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Set(fmt.Sprintf("bench-key-%d", i.Add(1)), value)
		}
	})
}

func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	value := []byte("benchmark-value")
	database.Set("bench-key", value)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Set("bench-key", value)
		}
	})
}

func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	value := make([]byte, 1024*1024) // 1 MB

	b.ResetTimer()
	var i atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Set(fmt.Sprintf("bench-key-%d", i.Add(1)), value)
		}
	})
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("bench-key-%d", i), []byte("benchmark-value"))
	}

	b.ResetTimer()
	var i atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Get(fmt.Sprintf("bench-key-%d", i.Add(1)%int64(numKeys)))
		}
	})
}

func benchmarkDelete(b *testing.B, database db.KVDB) {
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("bench-key-%d", i), []byte("benchmark-value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Delete(fmt.Sprintf("bench-key-%d", i))
	}
}

func benchmarkHas(b *testing.B, database db.KVDB) {
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("bench-key-%d", i), []byte("benchmark-value"))
	}

	b.ResetTimer()
	var i atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Has(fmt.Sprintf("bench-key-%d", i.Add(1)%int64(numKeys)))
		}
	})
}

func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("bench-key-%d", i), []byte("benchmark-value"))
	}

	b.ResetTimer()
	var i atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			n := i.Add(1)
			key := fmt.Sprintf("bench-key-%d", n%int64(numKeys))

			// 80% reads, 15% writes, 5% deletes
			switch n % 20 {
			case 0:
				database.Delete(key)
			case 1, 2, 3:
				database.Set(key, []byte("benchmark-value"))
			default:
				database.Get(key)
			}
		}
	})
}
