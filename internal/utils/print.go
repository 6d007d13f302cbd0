package utils

import (
	"encoding/json"
	"fmt"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
)

/**
 * Convert a struct to an ordered map keyed by its JSON tags
 * @param {interface{}} v - Struct to convert
 * @returns {(*orderedmap.OrderedMap, error)} Ordered map preserving field order
 * @description
 * - Round-trips through encoding/json so display columns follow struct order
 * - Used to build rows for PrintFormat
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	record := orderedmap.New()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, err
	}
	return record, nil
}

/**
 * Print records as an aligned table on stdout
 * @param {[]*orderedmap.OrderedMap} dataList - Rows to print; headers come from the first row's keys
 */
func PrintFormat(dataList []*orderedmap.OrderedMap) {
	if len(dataList) == 0 {
		return
	}

	keys := dataList[0].Keys()
	header := table.Row{}
	for _, key := range keys {
		header = append(header, key)
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	for _, record := range dataList {
		row := table.Row{}
		for _, key := range keys {
			value, _ := record.Get(key)
			row = append(row, fmt.Sprintf("%v", value))
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleLight)
	fmt.Println(t.Render())
}
