package main

import (
	"encoding/hex"
	"fmt"

	"github.com/cql-codec/cqlwire/cqltype"
	"github.com/cql-codec/cqlwire/frame"
	"github.com/cql-codec/cqlwire/metadata"
	"github.com/cql-codec/cqlwire/result"
)

func main() {
	startupBody := frame.New()
	if err := startupBody.PackStringMap(map[string]string{"CQL_VERSION": "3.0.5"}); err != nil {
		panic(err)
	}
	testFrame("STARTUP", frame.Build(frame.RequestV2, 0, 1, frame.OpCodeStartup, startupBody))

	queryBody := frame.New()
	if err := queryBody.PackLongString("SELECT * FROM system.local"); err != nil {
		panic(err)
	}
	if err := queryBody.PackShort(1); err != nil { // consistency ONE
		panic(err)
	}
	testFrame("QUERY", frame.Build(frame.RequestV2, 0, 1, frame.OpCodeQuery, queryBody))

	meta := metadata.New([]metadata.ColumnDescriptor{
		{Keyspace: "system", Table: "local", Name: "key", Type: cqltype.Varchar},
	})
	rows, err := result.New(meta, []map[string]interface{}{{"key": "local"}})
	if err != nil {
		panic(err)
	}
	resultBody := frame.New()
	if err := resultBody.PackInt(0x0002); err != nil { // RESULT kind: Rows
		panic(err)
	}
	if err := rows.Write(resultBody); err != nil {
		panic(err)
	}
	testFrame("RESULT Rows", frame.Build(frame.ResponseV2, 0, 1, frame.OpCodeResult, resultBody))
}

func testFrame(label string, encoded []byte) {
	println("--------------------------------")
	fmt.Printf("%s frame:\n%s", label, hex.Dump(encoded))

	header, body, rest, err := frame.Parse(encoded)
	if err != nil {
		panic(err)
	}
	fmt.Printf("decoded header: %v\n", header)
	fmt.Printf("unconsumed body bytes: %d, trailing bytes: %d\n", body.Len(), len(rest))
	println()
}
