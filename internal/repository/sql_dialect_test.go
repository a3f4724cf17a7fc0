package repository

import "testing"

func TestBuildKeywordLikeConditionByDialect(t *testing.T) {
	cases := []struct {
		name    string
		dialect string
		columns []string
		want    string
		args    int
	}{
		{"sqlite uses LIKE", "sqlite", []string{"first_name", "email"}, "first_name LIKE ? OR email LIKE ?", 2},
		{"postgres uses ILIKE", "postgres", []string{"first_name", "email"}, "first_name ILIKE ? OR email ILIKE ?", 2},
		{"blank columns are skipped", "sqlite", []string{"email", "  ", ""}, "email LIKE ?", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			condition, argCount := buildKeywordLikeConditionByDialect(tc.dialect, tc.columns)
			if condition != tc.want {
				t.Fatalf("condition = %q, want %q", condition, tc.want)
			}
			if argCount != tc.args {
				t.Fatalf("arg count = %d, want %d", argCount, tc.args)
			}
		})
	}
}

func TestDBDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%jane%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for i := range args {
		if args[i] != "%jane%" {
			t.Fatalf("args[%d] = %v, want %%jane%%", i, args[i])
		}
	}
}
