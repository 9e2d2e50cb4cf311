// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The audit-bgcq-db command allows the audit databases written by a run of
// bgcq with the -db flag to be queried. There are two databases holding the
// same entries in different orders.
//  - inputs.db:    entries grouped by input and ordered by position
//  - positions.db: entries ordered by position across all inputs
// Each of the databases must be named as described here for audit-bgcq-db
// to understand their contents. Output from audit-bgcq-db is a JSON stream
// on stdout.
//
// The databases contain classified BGC records in JSON corresponding to the
// following Go struct. Input is the name of the input in the bgcq report,
// and Class is the record's classification in the run: its recovery status
// in reference mode and its uniqueness in tools mode. Coordinates are
// zero-based and half-open.
//  struct {
//  	Run          string
//  	Input        string
//  	ID           string
//  	Tool         string
//  	SequenceID   string
//  	Start        int
//  	End          int
//  	Product      string
//  	Classes      []string
//  	GeneCount    int
//  	Completeness string
//  	Class        string
//  }
//
// With the -keys flag only the database keys are written, corresponding to
// the following Go struct.
//  struct {
//  	Input      string
//  	SequenceID string
//  	Start      int64
//  	End        int64
//  	Tool       string
//  	ID         string
//  }
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kortschak/bgcq/internal/store"
)

func main() {
	path := flag.String("db", "", "specify db file to audit (base must match '{inputs,positions}.db')")
	keys := flag.Bool("keys", false, "specify to write only the record keys")
	input := flag.String("input", "", "specify an input name to restrict output to")
	flag.Parse()
	if _, ok := store.CompareFor(filepath.Base(*path)); !ok {
		flag.Usage()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	err := store.Walk(*path, func(k, v []byte) error {
		key := store.UnmarshalRecordKey(k)
		if *input != "" && key.Input != *input {
			return nil
		}
		if *keys {
			return enc.Encode(key)
		}
		_, err := fmt.Printf("%s\n", v)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}
}
