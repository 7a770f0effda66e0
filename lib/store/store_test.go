package store

import (
	"sync"
	"testing"

	"github.com/ValentinKolb/avlshard/lib/router"
)

func TestPutGetRemoveBasics(t *testing.T) {
	s := New[int, string]()

	s.Put(1, "a")
	if v, err := s.Get(1); err != nil || v != "a" {
		t.Fatalf("Get(1) = (%q, %v), want (a, nil)", v, err)
	}
	if !s.Contains(1) {
		t.Fatalf("Contains(1) = false, want true")
	}

	s.Put(1, "b")
	if v, _ := s.Get(1); v != "b" {
		t.Fatalf("Get(1) after overwrite = %q, want b", v)
	}
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (overwrite must not change size)", s.Size())
	}

	if !s.Remove(1) {
		t.Fatalf("Remove(1) = false, want true")
	}
	if s.Contains(1) {
		t.Fatalf("Contains(1) = true after Remove")
	}
	if _, err := s.Get(1); err != ErrNotFound {
		t.Fatalf("Get(1) after Remove = %v, want ErrNotFound", err)
	}
	if s.Remove(1) {
		t.Fatalf("Remove(1) second time = true, want false (no-op)")
	}
}

// Scenario A: adversarial hotspot defeated by INTELLIGENT routing.
func TestScenarioAIntelligentDefeatsHotspot(t *testing.T) {
	const n = 8
	s := New[int, int](WithShardCount[int](n), WithStrategy[int](router.Intelligent))

	for i := 0; i < 500; i++ {
		s.Put(i*8, i*16)
	}

	maxCount, total := 0, 0
	for _, st := range s.ShardStats() {
		if st.Count > maxCount {
			maxCount = st.Count
		}
		total += st.Count
	}
	mean := float64(total) / float64(n)

	if float64(maxCount) > 2*mean {
		t.Fatalf("max shard count %d exceeds 2*mean (%.1f) under Intelligent routing", maxCount, 2*mean)
	}
	if score := s.BalanceScore(); score < 0.8 {
		t.Fatalf("BalanceScore() = %v, want >= 0.8 under Intelligent routing", score)
	}
}

// Scenario B: RANGE routing is a negative control, vulnerable to the same
// adversarial workload.
func TestScenarioBRangeCollapses(t *testing.T) {
	const n = 8
	s := New[int, int](WithShardCount[int](n), WithStrategy[int](router.Range))

	for i := 0; i < 500; i++ {
		s.Put(i*8, i*16)
	}

	found := false
	for _, st := range s.ShardStats() {
		if st.Count == 500 {
			found = true
		}
	}
	if !found {
		t.Fatalf("ShardStats() = %+v, want one shard holding all 500 entries under Range routing", s.ShardStats())
	}
	if score := s.BalanceScore(); score != 0 {
		t.Fatalf("BalanceScore() = %v, want 0 under collapsed Range routing", score)
	}
}

// Scenario C: round-trip under HASH.
func TestScenarioCHashRoundTrip(t *testing.T) {
	const n = 4
	s := New[int, int](WithShardCount[int](n), WithStrategy[int](router.Hash))

	for i := 0; i < 10000; i++ {
		s.Put(i, i*2)
	}
	for i := 0; i < 10000; i++ {
		v, err := s.Get(i)
		if err != nil || v != i*2 {
			t.Fatalf("Get(%d) = (%d, %v), want (%d, nil)", i, v, err, i*2)
		}
	}

	for i := 0; i < 10000; i += 2 {
		if !s.Remove(i) {
			t.Fatalf("Remove(%d) = false, want true", i)
		}
	}
	for i := 0; i < 10000; i++ {
		want := i%2 != 0
		if got := s.Contains(i); got != want {
			t.Fatalf("Contains(%d) = %v, want %v", i, got, want)
		}
	}
	if got := s.Size(); got != 5000 {
		t.Fatalf("Size() = %d, want 5000", got)
	}
}

// Scenario D: rebalance restores balance without losing data.
func TestScenarioDRebalanceRestoresBalance(t *testing.T) {
	const n = 4
	s := New[string, int](WithShardCount[string](n), WithStrategy[string](router.Hash))

	all := make(map[string]int)
	natural := s.router.Natural

	// Force 500 keys whose natural shard is 0, and 100 each into 1-3, by
	// probing sequential integers for their natural shard rather than
	// crafting collisions by hand.
	want := map[int]int{0: 500, 1: 100, 2: 100, 3: 100}
	got := map[int]int{}
	i := 0
	for {
		done := true
		for shard, target := range want {
			if got[shard] >= target {
				continue
			}
			done = false
			break
		}
		if done {
			break
		}

		key := keyFor(i)
		i++
		shard := natural(key)
		if got[shard] >= want[shard] {
			continue
		}
		value := got[shard]
		s.Put(key, value)
		all[key] = value
		got[shard]++
	}

	before := s.BalanceScore()
	if before >= 0.7 {
		t.Fatalf("BalanceScore() before rebalance = %v, want < 0.7 (test setup should be imbalanced)", before)
	}

	s.Rebalance(2.0)

	for k, v := range all {
		got, err := s.Get(k)
		if err != nil || got != v {
			t.Fatalf("Get(%q) after rebalance = (%d, %v), want (%d, nil)", k, got, err, v)
		}
	}

	after := s.BalanceScore()
	if after <= before {
		t.Fatalf("BalanceScore() after rebalance = %v, want > before (%v)", after, before)
	}
}

func keyFor(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, 0, 8)
	for i >= 0 {
		buf = append(buf, alphabet[i%len(alphabet)])
		i = i/len(alphabet) - 1
		if i < 0 {
			break
		}
	}
	return string(buf)
}

// Scenario E: redirect linearizability under forced diversion.
func TestScenarioERedirectLinearizability(t *testing.T) {
	const n = 8
	s := New[int, int](
		WithShardCount[int](n),
		WithStrategy[int](router.Intelligent),
		WithHotspotThreshold[int](1.5),
		WithHotspotFloor[int](10),
	)

	keys := make([]int, 0, 200)
	for i := 0; len(keys) < 200; i++ {
		if s.router.Natural(i) == 3 {
			keys = append(keys, i)
		}
	}

	for idx, k := range keys {
		s.Put(k, idx)
	}

	for idx, k := range keys {
		if !s.Contains(k) {
			t.Fatalf("Contains(%d) = false, want true", k)
		}
		v, err := s.Get(k)
		if err != nil || v != idx {
			t.Fatalf("Get(%d) = (%d, %v), want (%d, nil)", k, v, err, idx)
		}
	}
}

// Scenario F: GC prunes settled redirects once every diverted key has been
// moved back to its natural shard.
//
// The redirect-causing diversion itself is driven directly through the
// shard/router/redirect-index fields (this test lives in package store) so
// the set of diverted keys is exact rather than an emergent property of
// the hotspot heuristic's thresholds; this is the deterministic equivalent
// of "insert keys causing redirects" that the general Scenario E test
// already exercises through the public API via organic hotspot diversion.
func TestScenarioFGCPrunesSettledRedirects(t *testing.T) {
	const n = 4
	s := New[int, int](WithShardCount[int](n), WithStrategy[int](router.Hash))

	keys := make([]int, 50)
	for i := range keys {
		keys[i] = i * 7
	}

	for idx, k := range keys {
		natural := s.router.Natural(k)
		actual := (natural + 1) % n
		s.shards[actual].Insert(k, idx)
		s.router.RecordInsertion(actual)
		s.redirects.RecordRedirect(k, natural, actual)
	}

	if got := s.RedirectIndexSize(); got != len(keys) {
		t.Fatalf("RedirectIndexSize() = %d, want %d after forcing redirects", got, len(keys))
	}

	// GC must not prune anything yet: every entry is still genuinely
	// diverted (natural != actual).
	if removed := s.GCRedirects(); removed != 0 {
		t.Fatalf("GCRedirects() = %d before settling, want 0", removed)
	}

	// Scenario E's property: lookups succeed regardless of diversion.
	for idx, k := range keys {
		v, err := s.Get(k)
		if err != nil || v != idx {
			t.Fatalf("Get(%d) while diverted = (%d, %v), want (%d, nil)", k, v, err, idx)
		}
	}

	// Move every key's data from its diverted shard back to its natural
	// shard directly (bypassing Remove/Put's own redirect bookkeeping), and
	// point each index entry at the key's new residence. RecordRedirect is
	// given the old shard as its "natural" argument, since it refuses
	// natural == actual; the index is then left holding entries whose
	// recorded shard equals natural(k) -- exactly the condition gc_expired
	// exists to sweep up.
	for _, k := range keys {
		natural := s.router.Natural(k)
		actual, ok := s.redirects.Lookup(k)
		if !ok {
			t.Fatalf("Lookup(%d) = not found before settling", k)
		}
		v, err := s.shards[actual].Get(k)
		if err != nil {
			t.Fatalf("Get(%d) on diverted shard %d failed: %v", k, actual, err)
		}
		s.shards[actual].Remove(k)
		s.shards[natural].Insert(k, v)
		s.router.RecordRemoval(actual)
		s.router.RecordInsertion(natural)
		s.redirects.RecordRedirect(k, actual, natural)
	}

	// The index entries are now stale (recorded shard == natural(k) ==
	// actual residence) but have not been explicitly cleared yet.
	if got := s.RedirectIndexSize(); got != len(keys) {
		t.Fatalf("RedirectIndexSize() before GC = %d, want %d (stale entries not yet pruned)", got, len(keys))
	}

	if removed := s.GCRedirects(); removed != len(keys) {
		t.Fatalf("GCRedirects() = %d, want %d", removed, len(keys))
	}
	if got := s.RedirectIndexSize(); got != 0 {
		t.Fatalf("RedirectIndexSize() after GC = %d, want 0", got)
	}

	for idx, k := range keys {
		v, err := s.Get(k)
		if err != nil || v != idx {
			t.Fatalf("Get(%d) after GC = (%d, %v), want (%d, nil)", k, v, err, idx)
		}
		if !s.Contains(k) {
			t.Fatalf("Contains(%d) after GC = false, want true", k)
		}
	}
}

func TestConcurrentPutGet(t *testing.T) {
	s := New[int, int]()
	var wg sync.WaitGroup

	const n = 2000
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			s.Put(k, k*k)
		}(i)
	}
	wg.Wait()

	if got := s.Size(); got != n {
		t.Fatalf("Size() = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		v, err := s.Get(i)
		if err != nil || v != i*i {
			t.Fatalf("Get(%d) = (%d, %v), want (%d, nil)", i, v, err, i*i)
		}
	}
}

func TestShardDistribution(t *testing.T) {
	const n = 4
	s := New[int, int](WithShardCount[int](n), WithStrategy[int](router.Range))

	// Keys that are all multiples of n route to the same shard under mod-N
	// Range routing (same adversarial construction as Scenario B).
	for i := 0; i < 400; i++ {
		s.Put(i*n, i)
	}

	dist := s.ShardDistribution()
	if dist.Max != 400 || dist.Min != 0 {
		t.Fatalf("ShardDistribution() = %+v, want Min=0 Max=400 under a fully collapsed Range load", dist)
	}
	if dist.MinMaxRatio != 0 {
		t.Fatalf("ShardDistribution().MinMaxRatio = %v, want 0 when one shard holds everything", dist.MinMaxRatio)
	}
	if dist.StdDeviation <= 0 {
		t.Fatalf("ShardDistribution().StdDeviation = %v, want > 0 under a collapsed load", dist.StdDeviation)
	}
}

func TestShardCountDefault(t *testing.T) {
	s := New[int, int]()
	if got := s.ShardCount(); got != 8 {
		t.Fatalf("ShardCount() = %d, want default 8", got)
	}
}
