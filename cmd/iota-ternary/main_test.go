package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	testSeed = "TESTVALUE9DONTUSEINPRODUCTION999999GFDDCPFIIEHBCWFN9KHRBEIHHREFCKBVGUGEDXCFHDFPAL"

	// seed key index 0, security level 1
	testAddress = "KNDWDEEWWFVZLISLYRABGVWZCHZNZLNSEJXFKVGAUFLL9UMZYEZMEJB9BDLAASWTHEKFREUDIUPY9ICKW"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{clientIdentifier, "--verbosity", "2"}, args...))
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	out, err := run(t, "encode", "Hello,", "IOTA!")
	require.NoError(t, err)
	encoded := strings.TrimSpace(out)
	assert.Equal(t, string(trinary.EncodeString("Hello, IOTA!")), encoded)

	out, err = run(t, "decode", encoded)
	require.NoError(t, err)
	assert.Equal(t, "Hello, IOTA!\n", out)

	_, err = run(t, "decode", "--policy", "lenient", encoded)
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	out, err := run(t, "hash", "--sponge", "curl", testAddress)
	require.NoError(t, err)

	want, err := sponge.Sum(func() sponge.Sponge { return sponge.NewCurl() }, trinary.MustTrytesToTrits(testAddress))
	require.NoError(t, err)
	assert.Equal(t, string(types.HashFromTrits(want))+"\n", out)

	_, err = run(t, "hash", "--sponge", "sha256", testAddress)
	assert.Error(t, err)
}

func TestAddresses(t *testing.T) {
	out, err := run(t, "addresses", "--seed", testSeed, "--count", "2", "--security", "1", "--checksum=false")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0\t"+testAddress, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1\t"))

	_, err = run(t, "addresses", "--count", "1")
	assert.Error(t, err)
}

func TestTransferAndValidate(t *testing.T) {
	dir := t.TempDir()
	bundleFile := filepath.Join(dir, "bundle.txt")

	_, err := run(t, "transfer",
		"--seed", testSeed,
		"--security", "2",
		"--input", "0:100",
		"--timestamp", "1509136296",
		"--output", bundleFile,
		"iota:RECIPIENT9ADDRESS?amount=42&message=thanks",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(bundleFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 4)

	out, err := run(t, "validate", "--file", bundleFile, "--messages")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (4 transactions)")
	assert.Contains(t, out, "thanks\n")

	_, err = run(t, "validate")
	assert.Error(t, err)
}

func TestTransferErrors(t *testing.T) {
	_, err := run(t, "transfer", "--seed", testSeed, "--input", "0:100")
	assert.Error(t, err)

	_, err = run(t, "transfer", "--seed", testSeed, "iota:?amount=1")
	assert.Error(t, err)

	_, err = run(t, "transfer", "--seed", testSeed, "--input", "x", "iota:"+testAddress+"?amount=1")
	assert.Error(t, err)
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs(testSeed, 1, []string{"0:5", "3"})
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, testAddress, string(inputs[0].Trytes))
	require.NotNil(t, inputs[0].Balance)
	assert.Equal(t, int64(5), *inputs[0].Balance)
	assert.Equal(t, 3, *inputs[1].KeyIndex)
	assert.Nil(t, inputs[1].Balance)

	for _, arg := range []string{"-1", "a", "0:0", "0:x"} {
		_, err := parseInputs(testSeed, 1, []string{arg})
		assert.Error(t, err, arg)
	}

	none, err := parseInputs(testSeed, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReadTrytes(t *testing.T) {
	tx := strings.Repeat("9", types.TransactionTrytesLength)
	got, err := readTrytes(strings.NewReader("\n" + tx + "\n\n" + tx + "\n"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = readTrytes(strings.NewReader(tx + "\nSHORT\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, clientIdentifier+"\nVersion: "))
}
