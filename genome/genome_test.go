// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genome

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func gzipped(s string) string {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(s))
	gz.Close()
	return buf.String()
}

var lengthsTests = []struct {
	name string
	data string
	want map[string]int
}{
	{
		name: "genome.fasta",
		data: ">contigA desc\nATGCATGCATGC\n>contigB\nATGCATGC\n",
		want: map[string]int{"contigA": 12, "contigB": 8},
	},
	{
		name: "wrapped.fa",
		data: ">chr\nACGTA\nCGTAC\nGT\n>plasmid\nNNNNN\n",
		want: map[string]int{"chr": 12, "plasmid": 5},
	},
	{
		name: "irregular.fasta",
		data: ">a\nACGT\nACGTACGT\nAC\n>b\nacgt\n",
		want: map[string]int{"a": 14, "b": 4},
	},
	{
		name: "genome.fasta.gz",
		data: gzipped(">contigA\nATGCATGCATGC\n>contigB\nAT\nGC\n"),
		want: map[string]int{"contigA": 12, "contigB": 4},
	},
	{
		name: "genome.fasta.fai",
		data: "contigA\t12\t9\t12\t13\ncontigB\t8\t32\t8\t9\n",
		want: map[string]int{"contigA": 12, "contigB": 8},
	},
}

func TestLengths(t *testing.T) {
	dir := t.TempDir()
	for _, test := range lengthsTests {
		path := filepath.Join(dir, test.name)
		err := os.WriteFile(path, []byte(test.data), 0o644)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Lengths(path)
		if err != nil {
			t.Errorf("unexpected error for %s: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("unexpected lengths for %s: got:%v want:%v", test.name, got, test.want)
		}
	}
}

func TestLengthsMissing(t *testing.T) {
	_, err := Lengths(filepath.Join(t.TempDir(), "absent.fasta"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not exist error: %v", err)
	}
}
