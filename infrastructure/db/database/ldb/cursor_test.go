package ldb

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/duniter/duniter-rs-sub003/infrastructure/db/database"
)

func prepareCursorForTest(t *testing.T, ldb *LevelDB, bucket *database.Bucket, count int) {
	for i := 0; i < count; i++ {
		key := bucket.Key([]byte(fmt.Sprintf("%02d", i)))
		err := ldb.Put(key, []byte(fmt.Sprintf("value%d", i)))
		if err != nil {
			t.Fatalf("prepareCursorForTest: Put "+
				"unexpectedly failed: %s", err)
		}
	}
}

func TestCursorSanity(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestCursorSanity")
	defer teardownFunc()

	bucket := database.MakeBucket([]byte("bucket"))
	prepareCursorForTest(t, ldb, bucket, 10)

	// A neighbouring bucket sharing a prefix must not leak in
	otherBucket := database.MakeBucket([]byte("bucket2"))
	prepareCursorForTest(t, ldb, otherBucket, 3)

	cursor, err := ldb.Cursor(bucket)
	if err != nil {
		t.Fatalf("TestCursorSanity: Cursor unexpectedly "+
			"failed: %s", err)
	}
	defer cursor.Close()

	count := 0
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			t.Fatalf("TestCursorSanity: Key unexpectedly "+
				"failed: %s", err)
		}
		expectedSuffix := []byte(fmt.Sprintf("%02d", count))
		if !bytes.Equal(key.Suffix(), expectedSuffix) {
			t.Fatalf("TestCursorSanity: got suffix %s, want %s",
				key.Suffix(), expectedSuffix)
		}
		value, err := cursor.Value()
		if err != nil {
			t.Fatalf("TestCursorSanity: Value unexpectedly "+
				"failed: %s", err)
		}
		expectedValue := []byte(fmt.Sprintf("value%d", count))
		if !bytes.Equal(value, expectedValue) {
			t.Fatalf("TestCursorSanity: got value %s, want %s",
				value, expectedValue)
		}
		count++
	}
	if count != 10 {
		t.Fatalf("TestCursorSanity: iterated over %d entries, want 10", count)
	}

	_, err = cursor.Key()
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestCursorSanity: Key of an exhausted cursor "+
			"returned %v, want ErrNotFound", err)
	}
}

func TestCursorSeek(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestCursorSeek")
	defer teardownFunc()

	bucket := database.MakeBucket([]byte("bucket"))
	prepareCursorForTest(t, ldb, bucket, 5)

	cursor, err := ldb.Cursor(bucket)
	if err != nil {
		t.Fatalf("TestCursorSeek: Cursor unexpectedly "+
			"failed: %s", err)
	}

	err = cursor.Seek(bucket.Key([]byte("03")))
	if err != nil {
		t.Fatalf("TestCursorSeek: Seek unexpectedly "+
			"failed: %s", err)
	}
	value, err := cursor.Value()
	if err != nil {
		t.Fatalf("TestCursorSeek: Value unexpectedly "+
			"failed: %s", err)
	}
	if string(value) != "value3" {
		t.Fatalf("TestCursorSeek: got %s, want value3", value)
	}

	err = cursor.Seek(bucket.Key([]byte("99")))
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestCursorSeek: Seek to a missing key "+
			"returned %v, want ErrNotFound", err)
	}

	err = cursor.Close()
	if err != nil {
		t.Fatalf("TestCursorSeek: Close unexpectedly "+
			"failed: %s", err)
	}
	err = cursor.Close()
	if err == nil {
		t.Fatalf("TestCursorSeek: closing a closed cursor " +
			"unexpectedly succeeded")
	}
}
