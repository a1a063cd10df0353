package trace

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Record
	}{
		{
			name: "box drawing entry",
			line: "├── entry java.lang.Thread.run():void id=1",
			want: Record{Line: 7, Depth: 0, CallType: "entry", Class: "java.lang.Thread", Method: "run()"},
		},
		{
			name: "nested virtual call",
			line: "│   │   └── virtually calls java.lang.Runnable.run():void id=3",
			want: Record{Line: 7, Depth: 2, CallType: "virtually calls", Class: "java.lang.Runnable", Method: "run()"},
		},
		{
			name: "space indentation",
			line: "        is implemented by a.B$Inner.apply(int, long):Z",
			want: Record{Line: 7, Depth: 1, CallType: "is implemented by", Class: "a.B$Inner", Method: "apply(int, long)"},
		},
		{
			name: "constructor",
			line: "    directly calls com.example.Foo.<init>(com.example.Bar):void",
			want: Record{Line: 7, Depth: 0, CallType: "directly calls", Class: "com.example.Foo", Method: "<init>(com.example.Bar)"},
		},
		{
			name: "carriage return",
			line: "    entry Foo.bar():V\r",
			want: Record{Line: 7, Depth: 0, CallType: "entry", Class: "Foo", Method: "bar()"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(WithEntryLevel(DefaultEntryLevel))
			got, err := p.Parse(7, tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"only spaces and box chars", "│   │", "no content"},
		{"no dot", "    entry main", "missing '.' in qualified name"},
		{"no call type", "    Foo.bar():V", "missing call type"},
		{"no paren", "    directly calls Foo.field:I", "missing '(' in method"},
		{"no class", "    directly calls .bar():V", "missing class name"},
		{"no colon", "    directly calls Foo.bar()", "missing ':' after method"},
		{"shallower than entry", "entry Foo.bar():V", "indented less than an entry point"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(WithEntryLevel(DefaultEntryLevel))
			_, err := p.Parse(3, tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))

			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, 3, me.Line)
			assert.Equal(t, tt.reason, me.Reason)
		})
	}
}

func TestParser_AutoEntryLevel(t *testing.T) {
	p := NewParser()
	assert.Equal(t, AutoEntryLevel, p.EntryLevel())

	// A malformed first line must not calibrate the entry level.
	_, err := p.Parse(2, "        garbage")
	require.Error(t, err)
	assert.Equal(t, AutoEntryLevel, p.EntryLevel())

	rec, err := p.Parse(3, "entry Foo.bar():V")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Depth)
	assert.Equal(t, 0, p.EntryLevel())

	rec, err = p.Parse(4, "    directly calls Baz.qux():V")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Depth)
}

func TestParser_AutoEntryLevel_WaitsForEntry(t *testing.T) {
	p := NewParser()

	// A call line before any entry is read at the native-image level.
	rec, err := p.Parse(2, "│   │   └── virtually calls java.lang.Runnable.run():void id=3")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Depth)
	assert.Equal(t, AutoEntryLevel, p.EntryLevel())

	rec, err = p.Parse(3, "├── entry java.lang.Thread.run():void id=1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Depth)
	assert.Equal(t, DefaultEntryLevel, p.EntryLevel())

	rec, err = p.Parse(4, "└── entry com.example.Main.main(java.lang.String[]):void id=5")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Depth)
}

func TestReader_EmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)

	r = NewReader(strings.NewReader("header only\n"))
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, r.Lines())
}

func TestReader_Fixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)
			input, want := archiveFile(t, ar, "trace.txt"), archiveFile(t, ar, "want.txt")

			r := NewReader(strings.NewReader(input))
			var got []string
			for {
				rec, err := r.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				var me *MalformedError
				if errors.As(err, &me) {
					got = append(got, fmt.Sprintf("%d malformed", me.Line))
					continue
				}
				require.NoError(t, err)
				got = append(got, fmt.Sprintf("%d %d %s|%s|%s", rec.Line, rec.Depth, rec.CallType, rec.Class, rec.Method))
			}
			assert.Equal(t, strings.Split(strings.TrimSpace(want), "\n"), got)
		})
	}
}

func archiveFile(t *testing.T, ar *txtar.Archive, name string) string {
	t.Helper()
	for _, f := range ar.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	t.Fatalf("archive has no %s", name)
	return ""
}
