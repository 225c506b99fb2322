package cache

import (
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "method only",
			key:  CacheKey{Scope: "abc", Method: "getLists"},
			want: "netsendo:options:abc:getLists",
		},
		{
			name: "single arg",
			key: CacheKey{
				Scope:  "abc",
				Method: "getSubscribersWithPhone",
				Args:   map[string]string{"list": "12"},
			},
			want: "netsendo:options:abc:getSubscribersWithPhone:list=12",
		},
		{
			name: "multiple args sorted",
			key: CacheKey{
				Scope:  "abc",
				Method: "getCustomFields",
				Args:   map[string]string{"z": "1", "a": "2"},
			},
			want: "netsendo:options:abc:getCustomFields:a=2:z=1",
		},
		{
			name: "empty key",
			key:  CacheKey{},
			want: "netsendo:options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := CacheKey{
		Scope:  "abc",
		Method: "m",
		Args:   map[string]string{"b": "2", "a": "1", "c": "3"},
	}

	first := key.String()
	for i := 0; i < 20; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
