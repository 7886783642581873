package change

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\n]*`},
		{Name: "MultilineComment", Pattern: `/\*(?s:.)*?\*/`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Other", Pattern: `.`},
	})

	otherToken = sqlLexer.Symbols()["Other"]
)

// IsBlank reports whether content holds nothing but whitespace and SQL
// comments, which is what a freshly scaffolded placeholder file looks like.
func IsBlank(content string) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}

	lex, err := sqlLexer.Lex("", strings.NewReader(content))
	if err != nil {
		return false
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return false
		}

		if tok.EOF() {
			return true
		}

		if tok.Type == otherToken {
			return false
		}
	}
}

// CheckContent rejects a list of files in which every SQL file is empty or a
// bare placeholder. Manifests are exempt: a list containing one always passes.
func CheckContent(files []File) error {
	if len(files) == 0 {
		return nil
	}

	for _, f := range files {
		if f.Type == Manifest {
			return nil
		}

		content, err := os.ReadFile(f.Path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", f.Path)
		}

		if !IsBlank(string(content)) {
			return nil
		}
	}

	return &ValidationError{
		Path:     filepath.Dir(files[0].Path),
		Problems: []string{"every SQL file is empty or only contains comments"},
	}
}
