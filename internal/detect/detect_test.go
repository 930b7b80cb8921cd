package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileMentions(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "ingest.py", "import legacy_crypto\n\ndef ingest_log(msg, level):\n    return legacy_crypto.secure_hash(msg)\n")
	assert.True(t, FileMentions(path, "legacy_crypto", "secure_hash"))

	clean := writeFile(t, dir, "clean.py", "import hashlib\n")
	assert.False(t, FileMentions(clean, "legacy_crypto", "secure_hash"))

	assert.False(t, FileMentions(filepath.Join(dir, "missing.py"), "legacy_crypto"))
}

func TestHasRotateCall(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{
			name:   "direct literal",
			source: "canvas.rotate(45)\n",
			want:   true,
		},
		{
			name:   "literal with odd formatting and comments",
			source: "canvas.rotate(  # watermark angle\n    45 ,\n)\n",
			want:   true,
		},
		{
			name:   "keyword argument",
			source: "canvas.rotate(angle=45)\n",
			want:   true,
		},
		{
			name:   "module level variable",
			source: "angle = 45\ncanvas.rotate(angle)\n",
			want:   true,
		},
		{
			name:   "variable inside same function",
			source: "def watermark(c):\n    tilt = 45\n    c.rotate(tilt)\n",
			want:   true,
		},
		{
			name:   "literal inside function",
			source: "def watermark(c):\n    c.rotate(45)\n",
			want:   true,
		},
		{
			name:   "variable in different function",
			source: "def setup():\n    angle = 45\n\ndef watermark(c):\n    c.rotate(angle)\n",
			want:   false,
		},
		{
			name:   "wrong angle",
			source: "angle = 90\ncanvas.rotate(angle)\n",
			want:   false,
		},
		{
			name:   "wrong angle literal",
			source: "canvas.rotate(90)\n",
			want:   false,
		},
		{
			name:   "rotate mentioned only in comment",
			source: "# canvas.rotate(45)\ncanvas.translate(45)\n",
			want:   false,
		},
		{
			name:   "rotate mentioned only in string",
			source: "msg = 'canvas.rotate(45)'\n",
			want:   false,
		},
		{
			name:   "unrelated call with 45",
			source: "canvas.scale(45)\n",
			want:   false,
		},
		{
			name:   "callee suffix match on bare function",
			source: "rotate(45)\n",
			want:   true,
		},
		{
			name:   "deeply dotted callee",
			source: "pdf.canvas.rotate(45)\n",
			want:   true,
		},
		{
			name:   "syntax error fails closed",
			source: "def broken(:\n    canvas.rotate(45)\n",
			want:   false,
		},
		{
			name:   "multi target assignment does not bind",
			source: "a = b = 45\ncanvas.rotate(a)\n",
			want:   false,
		},
		{
			name:   "keyword argument variable in same scope",
			source: "def watermark(c):\n    deg = 45\n    c.rotate(angle=deg)\n",
			want:   true,
		},
		{
			name:   "float literal",
			source: "canvas.rotate(45.0)\n",
			want:   true,
		},
		{
			name:   "hex literal",
			source: "canvas.rotate(0x2D)\n",
			want:   true,
		},
		{
			name:   "underscored literal",
			source: "angle = 4_5\ncanvas.rotate(angle)\n",
			want:   true,
		},
		{
			name:   "non integral float",
			source: "canvas.rotate(45.5)\n",
			want:   false,
		},
		{
			name:   "annotated assignment does not bind",
			source: "angle: int = 45\ncanvas.rotate(angle)\n",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "report.py", tt.source)
			assert.Equal(t, tt.want, HasRotateCall(path, 45))
		})
	}
}

func TestHasRotateCall_MissingFile(t *testing.T) {
	assert.False(t, HasRotateCall(filepath.Join(t.TempDir(), "report.py"), 45))
}

func TestMocksModule(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{
			name:   "patch with string literal",
			source: "from unittest.mock import patch\n\ndef test_hash():\n    with patch('legacy_crypto.secure_hash'):\n        pass\n",
			want:   true,
		},
		{
			name:   "patch object with bare name",
			source: "import legacy_crypto\nfrom unittest import mock\n\ndef test_hash():\n    with mock.patch.object(legacy_crypto, 'secure_hash'):\n        pass\n",
			want:   true,
		},
		{
			name:   "monkeypatch setattr",
			source: "def test_hash(monkeypatch):\n    monkeypatch.setattr(legacy_crypto, 'secure_hash', lambda d: 'x')\n",
			want:   true,
		},
		{
			name:   "patch with attribute chain",
			source: "from unittest import mock\n\ndef test_hash():\n    mock.patch(legacy_crypto.secure_hash)\n",
			want:   true,
		},
		{
			name:   "patch with new keyword referencing module",
			source: "from unittest.mock import patch\n\ndef test_hash():\n    patch(target='legacy_crypto.secure_hash')\n",
			want:   true,
		},
		{
			name:   "comment mentioning mock and module",
			source: "# we should mock legacy_crypto here\ndef test_hash():\n    assert legacy_crypto.secure_hash('x')\n",
			want:   false,
		},
		{
			name:   "patch of unrelated module",
			source: "from unittest.mock import patch\n\ndef test_other():\n    with patch('os.path.exists'):\n        pass\n",
			want:   false,
		},
		{
			name:   "no patch call at all",
			source: "def test_hash():\n    assert True\n",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "tests"), "test_ingest.py", tt.source)
			assert.Equal(t, tt.want, MocksModule(filepath.Join(dir, "tests"), "legacy_crypto"))
		})
	}
}

func TestMocksModule_NestedFileAndMissingDir(t *testing.T) {
	dir := t.TempDir()
	testsDir := filepath.Join(dir, "tests")

	// Missing directory is not an error.
	assert.False(t, MocksModule(testsDir, "legacy_crypto"))

	// A match in a nested subdirectory counts.
	writeFile(t, filepath.Join(testsDir, "unit"), "test_deep.py",
		"from unittest.mock import patch\n\ndef test_deep():\n    with patch('legacy_crypto.secure_hash'):\n        pass\n")
	assert.True(t, MocksModule(testsDir, "legacy_crypto"))
}

func TestMocksModule_SkipsUnparsableFiles(t *testing.T) {
	dir := t.TempDir()
	testsDir := filepath.Join(dir, "tests")
	writeFile(t, testsDir, "test_broken.py", "def broken(:\n    pass\n")
	writeFile(t, testsDir, "test_ok.py",
		"from unittest.mock import patch\n\ndef test_ok():\n    with patch('legacy_crypto.secure_hash'):\n        pass\n")
	assert.True(t, MocksModule(testsDir, "legacy_crypto"))
}
