package postgres

import "testing"

func TestPoolConfigWithDefaults(t *testing.T) {
	cases := []struct {
		in   PoolConfig
		want PoolConfig
	}{
		{PoolConfig{}, PoolConfig{MaxOpenConns: 30, MaxIdleConns: 20}},
		{PoolConfig{MaxOpenConns: 10}, PoolConfig{MaxOpenConns: 10, MaxIdleConns: 10}},
		{PoolConfig{MaxOpenConns: 50, MaxIdleConns: 5}, PoolConfig{MaxOpenConns: 50, MaxIdleConns: 5}},
		{PoolConfig{MaxOpenConns: -1, MaxIdleConns: -1}, PoolConfig{MaxOpenConns: 30, MaxIdleConns: 20}},
	}
	for _, tc := range cases {
		if got := tc.in.withDefaults(); got != tc.want {
			t.Fatalf("%+v: expected %+v, got %+v", tc.in, tc.want, got)
		}
	}
}
