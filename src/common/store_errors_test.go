package common

import (
	"errors"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("Thread", KeyNotFound, "thread-1")

	if !IsStore(err, KeyNotFound) {
		t.Fatal("expected IsStore to match the error type")
	}

	if IsStore(err, KeyAlreadyExists) {
		t.Fatal("IsStore should not match a different error type")
	}

	if IsStore(errors.New("plain error"), KeyNotFound) {
		t.Fatal("IsStore should not match a non StoreErr")
	}

	if IsStore(nil, KeyNotFound) {
		t.Fatal("IsStore should not match nil")
	}
}
