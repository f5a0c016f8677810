package history

import (
	"testing"
	"time"

	"latencywatch/internal/models"
)

type sliceSource map[string][]models.Sample

func (s sliceSource) History(id string) []models.Sample { return s[id] }

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func tp(t time.Time) *time.Time { return &t }

func series(id string, n int) []models.Sample {
	e := models.Endpoint{ID: id, Host: id + ".example", Port: 443}
	out := make([]models.Sample, n)
	for i := range out {
		out[i] = models.NewSample(e, at(i), models.StatusOK, int64(10+i))
	}
	return out
}

func TestQueryWindows(t *testing.T) {
	src := sliceSource{"a": series("a", 10)}

	cases := []struct {
		name      string
		window    Window
		wantFirst int64
		wantLen   int
	}{
		{"unbounded", Window{}, 10, 10},
		{"from only", Window{From: tp(at(7))}, 17, 3},
		{"to only", Window{To: tp(at(2))}, 10, 3},
		{"inclusive range", Window{From: tp(at(3)), To: tp(at(5))}, 13, 3},
		{"single instant", Window{From: tp(at(4)), To: tp(at(4))}, 14, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Query(src, "a", tc.window)
			if len(got) != tc.wantLen {
				t.Fatalf("expected %d samples, got %d", tc.wantLen, len(got))
			}
			if *got[0].RTTMs != tc.wantFirst {
				t.Fatalf("expected first rtt %d, got %d", tc.wantFirst, *got[0].RTTMs)
			}
			for i := 1; i < len(got); i++ {
				if *got[i].RTTMs != *got[i-1].RTTMs+1 {
					t.Fatal("result is not a contiguous subsequence")
				}
			}
		})
	}
}

func TestQueryEmptyCases(t *testing.T) {
	src := sliceSource{"a": series("a", 3)}
	if got := Query(src, "unknown", Window{}); got == nil || len(got) != 0 {
		t.Fatalf("unknown id should give an empty slice, got %v", got)
	}
	if got := Query(src, "a", Window{From: tp(at(5)), To: tp(at(1))}); len(got) != 0 {
		t.Fatalf("inverted window should be empty, got %d", len(got))
	}
}

func TestBuildTimelineBuckets(t *testing.T) {
	e := models.Endpoint{ID: "a", Host: "a.example", Port: 443}
	samples := []models.Sample{
		models.NewSample(e, at(0), models.StatusOK, 10),
		models.NewSample(e, at(1), models.StatusOK, 30),
		models.NewSample(e, at(4), models.StatusTimeout, 0),
		models.NewSample(e, at(5), models.StatusOK, 50),
		models.NewSample(e, at(6), models.StatusError, 0),
		models.NewSample(e, at(30), models.StatusOK, 1),
	}

	points := BuildTimeline(samples, at(0), at(8), 4)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}

	first := points[0]
	if first.ClassName != classSuccess || first.Samples != 2 || *first.MeanRTTMs != 20 || *first.MinRTTMs != 10 || *first.MaxRTTMs != 30 {
		t.Fatalf("unexpected first bucket %+v", first)
	}
	if points[1].ClassName != classMissing || points[1].MeanRTTMs != nil {
		t.Fatalf("expected empty second bucket, got %+v", points[1])
	}
	if points[2].ClassName != classWarning || points[2].Passing != 1 || points[2].Samples != 2 {
		t.Fatalf("expected degraded third bucket, got %+v", points[2])
	}
	if points[3].ClassName != classError || points[3].Samples != 1 {
		t.Fatalf("expected unavailable last bucket, got %+v", points[3])
	}
	if !points[3].End.Equal(at(8)) {
		t.Fatalf("last bucket must end at range end, got %v", points[3].End)
	}
}

func TestBuildTimelineDefaults(t *testing.T) {
	points := BuildTimeline(nil, at(0), at(0), 0)
	if len(points) != DefaultTimelinePoints {
		t.Fatalf("expected %d points, got %d", DefaultTimelinePoints, len(points))
	}
	if !points[len(points)-1].End.Equal(at(60)) {
		t.Fatalf("degenerate range should widen to one minute, got %v", points[len(points)-1].End)
	}
}
