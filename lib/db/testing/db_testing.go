package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/vaultkv/vaultkv/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Len&Clear", func(t *testing.T) {
			testLenClear(t, factory())
		})

		t.Run("ForEach", func(t *testing.T) {
			testForEach(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	testKey := "delete-key"
	testValue := []byte("delete-value")

	database.Set(testKey, testValue)

	if !database.Has(testKey) {
		t.Errorf("Expected key %s to exist before Delete", testKey)
	}

	existed := database.Delete(testKey)
	if !existed {
		t.Errorf("Expected Delete of present key to report existed=true")
	}

	if database.Has(testKey) {
		t.Errorf("Expected key %s to be gone after Delete", testKey)
	}

	_, exists := database.Get(testKey)
	if exists {
		t.Errorf("Expected Get after Delete to return exists=false")
	}

	existed = database.Delete(testKey)
	if existed {
		t.Errorf("Expected Delete of absent key to report existed=false")
	}

	existed = database.Delete("never-set-key")
	if existed {
		t.Errorf("Expected Delete of never-set key to report existed=false")
	}
}

func testHas(t *testing.T, database db.KVDB) {
	testKey := "has-key"

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false before Set")
	}

	database.Set(testKey, []byte("has-value"))

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	database.Delete(testKey)

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testLenClear(t *testing.T, database db.KVDB) {
	if database.Len() != 0 {
		t.Errorf("Expected empty database to have Len 0, got %d", database.Len())
	}

	numKeys := 100
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("len-key-%d", i), []byte(fmt.Sprintf("len-value-%d", i)))
	}

	if database.Len() != numKeys {
		t.Errorf("Expected Len %d, got %d", numKeys, database.Len())
	}

	// Overwriting must not grow the count
	database.Set("len-key-0", []byte("overwritten"))
	if database.Len() != numKeys {
		t.Errorf("Expected Len %d after overwrite, got %d", numKeys, database.Len())
	}

	database.Delete("len-key-0")
	if database.Len() != numKeys-1 {
		t.Errorf("Expected Len %d after delete, got %d", numKeys-1, database.Len())
	}

	database.Clear()
	if database.Len() != 0 {
		t.Errorf("Expected Len 0 after Clear, got %d", database.Len())
	}
}

func testForEach(t *testing.T, database db.KVDB) {
	expected := map[string]string{
		"alpha": "1",
		"beta":  "2",
		"gamma": "3",
	}

	for k, v := range expected {
		database.Set(k, []byte(v))
	}

	seen := map[string]string{}
	database.ForEach(func(key string, value []byte) bool {
		seen[key] = string(value)
		return true
	})

	if len(seen) != len(expected) {
		t.Errorf("Expected ForEach to visit %d entries, got %d", len(expected), len(seen))
	}
	for k, v := range expected {
		if seen[k] != v {
			t.Errorf("Expected ForEach to see %s=%s, got %s", k, v, seen[k])
		}
	}

	// Early termination
	visited := 0
	database.ForEach(func(string, []byte) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Expected ForEach to stop after fn returns false, visited %d", visited)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	// Empty value
	database.Set("empty-value-key", []byte{})
	result, exists := database.Get("empty-value-key")
	if !exists {
		t.Errorf("Expected key with empty value to exist")
	}
	if len(result) != 0 {
		t.Errorf("Expected empty value, got %s", result)
	}

	// Value with embedded whitespace and binary content
	oddValue := []byte("value with spaces\tand\x00bytes")
	database.Set("odd-value-key", oddValue)
	result, _ = database.Get("odd-value-key")
	if !bytes.Equal(result, oddValue) {
		t.Errorf("Expected value %q, got %q", oddValue, result)
	}

	// Long key
	longKey := ""
	for i := 0; i < 100; i++ {
		longKey += "k"
	}
	database.Set(longKey, []byte("long-key-value"))
	if !database.Has(longKey) {
		t.Errorf("Expected long key to exist")
	}
}

func testConcurrentAccess(t *testing.T, database db.KVDB) {
	var wg sync.WaitGroup

	numWriters := 8
	numKeysPerWriter := 200

	// Concurrent writers on distinct key ranges
	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < numKeysPerWriter; i++ {
				key := fmt.Sprintf("writer-%d-key-%d", w, i)
				database.Set(key, []byte(fmt.Sprintf("value-%d-%d", w, i)))
			}
		}(w)
	}

	// Concurrent readers over the whole keyspace
	for r := 0; r < numWriters; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < numKeysPerWriter; i++ {
				key := fmt.Sprintf("writer-%d-key-%d", r, i)
				if value, ok := database.Get(key); ok {
					expected := fmt.Sprintf("value-%d-%d", r, i)
					if string(value) != expected {
						t.Errorf("Expected %s, got %s", expected, value)
					}
				}
			}
		}(r)
	}

	wg.Wait()

	if database.Len() != numWriters*numKeysPerWriter {
		t.Errorf("Expected %d entries after concurrent writes, got %d",
			numWriters*numKeysPerWriter, database.Len())
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)))
	}

	// Overwrite every other key
	for i := 0; i < numKeys; i += 2 {
		database.Set(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d-updated", i)))
	}

	// Delete every fourth key
	for i := 0; i < numKeys; i += 4 {
		database.Delete(fmt.Sprintf("key-%d", i))
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, exists := database.Get(key)

		switch {
		case i%4 == 0:
			if exists {
				t.Errorf("Expected key %s to be deleted", key)
			}
		case i%2 == 0:
			if !exists || string(value) != fmt.Sprintf("value-%d-updated", i) {
				t.Errorf("Expected key %s to hold updated value, got %s", key, value)
			}
		default:
			if !exists || string(value) != fmt.Sprintf("value-%d", i) {
				t.Errorf("Expected key %s to hold original value, got %s", key, value)
			}
		}
	}
}
