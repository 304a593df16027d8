package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairs(t *testing.T) {
	tests := []struct {
		name  string
		hosts []string
		want  []Pair
	}{
		{name: "empty", hosts: nil, want: nil},
		{name: "single host", hosts: []string{"a"}, want: nil},
		{
			name:  "two hosts",
			hosts: []string{"a", "b"},
			want:  []Pair{{"a", "b"}, {"b", "a"}},
		},
		{
			name:  "three hosts row major",
			hosts: []string{"c", "a", "b"},
			want: []Pair{
				{"c", "a"}, {"c", "b"},
				{"a", "c"}, {"a", "b"},
				{"b", "c"}, {"b", "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pairs(tt.hosts))
		})
	}
}

func TestPairs_Size(t *testing.T) {
	for n := 2; n <= 12; n++ {
		hosts := make([]string, n)
		for i := range hosts {
			hosts[i] = string(rune('a' + i))
		}
		pairs := Pairs(hosts)
		require.Len(t, pairs, n*(n-1))
		for _, p := range pairs {
			assert.NotEqual(t, p.Client, p.Server)
		}
	}
}

func TestDedupe(t *testing.T) {
	unique, dropped := Dedupe([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, unique)
	assert.Equal(t, []string{"a", "b"}, dropped)

	unique, dropped = Dedupe([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, unique)
	assert.Empty(t, dropped)
}

func TestOutcome(t *testing.T) {
	ok := Success(9.4)
	assert.False(t, ok.Failed())
	assert.Equal(t, 9.4, ok.Gbps)

	bad := Failure("connection refused")
	assert.True(t, bad.Failed())
	assert.Zero(t, bad.Gbps)

	assert.True(t, Failure("").Failed())
}

func TestMatrix(t *testing.T) {
	m := NewMatrix([]string{"a", "b", "c"})
	assert.False(t, m.Complete())

	require.NoError(t, m.Set(Pair{"a", "b"}, Success(12)))
	assert.Error(t, m.Set(Pair{"a", "b"}, Success(1)), "second write must be refused")
	assert.Error(t, m.Set(Pair{"a", "a"}, Success(1)), "self pairs are never stored")

	got, ok := m.Get("a", "b")
	require.True(t, ok)
	assert.Equal(t, 12.0, got.Gbps)

	_, ok = m.Get("b", "a")
	assert.False(t, ok)

	for _, p := range Pairs(m.Hosts()) {
		if p == (Pair{"a", "b"}) {
			continue
		}
		require.NoError(t, m.Set(p, Failure("x")))
	}
	assert.True(t, m.Complete())
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, 5, m.Failures())

	var order []Pair
	m.Each(func(p Pair, _ Outcome) { order = append(order, p) })
	assert.Equal(t, Pairs([]string{"a", "b", "c"}), order)
}
