package vcs

import (
	"reflect"
	"testing"
)

func TestParseNameStatus(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    Diff
		wantErr bool
	}{
		{
			name:   "empty diff",
			output: "\n",
			want:   Diff{},
		},
		{
			name: "all statuses",
			output: "A\tblog/2024/04-08.new.html\n" +
				"M\tnotes/git.html\n" +
				"R100\tnotes/old.html\tnotes/new.html\n" +
				"D\tblog/2020/01-01.gone.html\n",
			want: Diff{
				Added:    []string{"blog/2024/04-08.new.html"},
				Modified: []string{"notes/git.html"},
				Renamed:  []Rename{{From: "notes/old.html", To: "notes/new.html"}},
				Deleted:  []string{"blog/2020/01-01.gone.html"},
			},
		},
		{
			name:   "rename with a partial similarity score",
			output: "R087\ta/old.html\ta/new.html\n",
			want: Diff{
				Renamed: []Rename{{From: "a/old.html", To: "a/new.html"}},
			},
		},
		{
			name:    "rename line without a target",
			output:  "R100\tnotes/old.html\n",
			wantErr: true,
		},
		{
			name:    "line without a path",
			output:  "A\n",
			wantErr: true,
		},
		{
			name:    "unsupported status",
			output:  "C75\ta/src.html\ta/copy.html\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNameStatus(tt.output)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNameStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDiffFilter(t *testing.T) {
	diff := Diff{
		Added:    []string{"blog/2024/04-08.new.html", "drafts/wip.html", ".DS_Store"},
		Modified: []string{"notes/git.html", "README.adoc"},
		Renamed: []Rename{
			{From: "notes/old.html", To: "notes/new.html"},
			{From: "notes/promoted.html", To: "drafts/demoted.html"},
		},
		Deleted: []string{".git/config", "blog/2020/01-01.gone.html"},
	}

	got := diff.Filter([]string{".git/**", "**/.DS_Store", "drafts/**", "README*"})

	want := Diff{
		Added:    []string{"blog/2024/04-08.new.html"},
		Modified: []string{"notes/git.html"},
		Renamed:  []Rename{{From: "notes/old.html", To: "notes/new.html"}},
		Deleted:  []string{"blog/2020/01-01.gone.html"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %+v, want %+v", got, want)
	}
}

func TestDiffEmpty(t *testing.T) {
	if !(Diff{}).Empty() {
		t.Error("zero diff is not empty")
	}
	if (Diff{Added: []string{"a.html"}}).Empty() {
		t.Error("diff with additions is empty")
	}
}
