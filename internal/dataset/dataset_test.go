package dataset

import (
	"path/filepath"
	"reflect"
	"slices"
	"testing"
)

func sample(t *testing.T, n int) *Dataset {
	t.Helper()
	labels := make([]int, n)
	texts := make([]string, n)
	for i := range n {
		labels[i] = i % 2
		texts[i] = string(rune('a' + i))
	}
	ds, err := New("Sample", "train", []string{"label", "text"}, labels, texts)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestNew(t *testing.T) {
	ds := sample(t, 3)
	if ds.Len() != 3 {
		t.Fatalf("Len = %d", ds.Len())
	}
	if got := ds.At(2); got != (Row{Label: 0, Text: "c"}) {
		t.Fatalf("At(2) = %+v", got)
	}
	if ds.Name() != "Sample" || ds.Split() != "train" || ds.TextColumn() != "text" {
		t.Fatalf("unexpected metadata: %s %s %s", ds.Name(), ds.Split(), ds.TextColumn())
	}

	cols := ds.Columns()
	cols[0] = "mutated"
	if ds.Columns()[0] != "label" {
		t.Fatal("Columns must return a copy")
	}
}

func TestNewRejectsMismatch(t *testing.T) {
	if _, err := New("x", "train", []string{"label", "text"}, []int{1}, nil); err == nil {
		t.Fatal("expected error for unequal lengths")
	}
	if _, err := New("x", "train", []string{"label"}, nil, nil); err == nil {
		t.Fatal("expected error for wrong column count")
	}
}

func TestAllStopsEarly(t *testing.T) {
	ds := sample(t, 5)
	var seen []int
	for i, row := range All[Row](ds) {
		seen = append(seen, i)
		if row.Text == "b" {
			break
		}
	}
	if !reflect.DeepEqual(seen, []int{0, 1}) {
		t.Fatalf("seen = %v", seen)
	}
}

func TestCollect(t *testing.T) {
	rows := Collect[Row](sample(t, 3))
	want := []Row{{0, "a"}, {1, "b"}, {0, "c"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("Collect = %v", rows)
	}
}

func TestShard(t *testing.T) {
	ds := sample(t, 7)
	var total int
	for i := range 3 {
		v, err := Shard[Row](ds, 3, i)
		if err != nil {
			t.Fatal(err)
		}
		total += v.Len()
		for j, row := range All[Row](v) {
			if row != ds.At(i+3*j) {
				t.Fatalf("shard %d element %d = %+v", i, j, row)
			}
		}
	}
	if total != 7 {
		t.Fatalf("shards cover %d rows, want 7", total)
	}
	for _, bad := range [][2]int{{0, 0}, {3, 3}, {3, -1}} {
		if _, err := Shard[Row](ds, bad[0], bad[1]); err == nil {
			t.Errorf("Shard(%d, %d) should fail", bad[0], bad[1])
		}
	}
}

func TestBatches(t *testing.T) {
	ds := sample(t, 5)
	var sizes []int
	for b, batch := range Batches[Row](ds, 2) {
		if batch[0] != ds.At(2*b) {
			t.Fatalf("batch %d starts with %+v", b, batch[0])
		}
		sizes = append(sizes, len(batch))
	}
	if !reflect.DeepEqual(sizes, []int{2, 2, 1}) {
		t.Fatalf("batch sizes = %v", sizes)
	}
	for range Batches[Row](ds, 0) {
		t.Fatal("size 0 must yield nothing")
	}
}

func TestSplit(t *testing.T) {
	ds := sample(t, 10)
	views, err := Split[Row](ds, []float64{0.7, 0.3}, 42)
	if err != nil {
		t.Fatal(err)
	}
	if views[0].Len() != 7 || views[1].Len() != 3 {
		t.Fatalf("split sizes = %d/%d", views[0].Len(), views[1].Len())
	}

	all := append(views[0].Indices(), views[1].Indices()...)
	slices.Sort(all)
	if !reflect.DeepEqual(all, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Fatalf("split must partition the source, got %v", all)
	}

	again, _ := Split[Row](ds, []float64{0.7, 0.3}, 42)
	if !reflect.DeepEqual(again[0].Indices(), views[0].Indices()) {
		t.Fatal("same seed must give the same split")
	}
}

func TestSplitRejectsBadFractions(t *testing.T) {
	ds := sample(t, 4)
	for _, fr := range [][]float64{nil, {0.5, 0.4}, {1.2, -0.2}} {
		if _, err := Split[Row](ds, fr, 1); err == nil {
			t.Errorf("Split(%v) should fail", fr)
		}
	}
}

func TestCacheDir(t *testing.T) {
	got := CacheDir("/data", "AmazonReviewPolarity")
	if want := filepath.Join("/data", "datasets", "AmazonReviewPolarity"); got != want {
		t.Fatalf("CacheDir = %s, want %s", got, want)
	}
}

func TestResolveSplits(t *testing.T) {
	available := []string{"train", "test"}
	tests := []struct {
		requested []string
		want      []string
		wantErr   bool
	}{
		{nil, []string{"train", "test"}, false},
		{[]string{"test"}, []string{"test"}, false},
		{[]string{"test", "train"}, []string{"test", "train"}, false},
		{[]string{"valid"}, nil, true},
	}
	for _, tt := range tests {
		got, err := ResolveSplits(tt.requested, available)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveSplits(%v) err = %v", tt.requested, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveSplits(%v) = %v, want %v", tt.requested, got, tt.want)
		}
	}
}
