package git

import "testing"

func TestBranchName(t *testing.T) {
	cases := []struct {
		taskID, title, want string
	}{
		{"T-12", "Fix the login bug", "task/T-12-fix-the-login-bug"},
		{"T-13", "  Weird!!  Punctuation??  ", "task/T-13-weird-punctuation"},
		{"T-14", "", "task/T-14"},
		{"T-15", "---", "task/T-15"},
	}
	for _, c := range cases {
		if got := BranchName(c.taskID, c.title); got != c.want {
			t.Errorf("BranchName(%q, %q) = %q, want %q", c.taskID, c.title, got, c.want)
		}
	}
}

func TestBranchName_TruncatesLongTitles(t *testing.T) {
	long := "this title is extremely long and should be truncated well before it gets anywhere near this length"
	got := BranchName("T-1", long)
	if len(got) > len("task/T-1-")+maxSlugLen {
		t.Errorf("BranchName did not truncate: got %d chars: %q", len(got), got)
	}
	if got[len(got)-1] == '-' {
		t.Errorf("BranchName left a trailing hyphen: %q", got)
	}
}
