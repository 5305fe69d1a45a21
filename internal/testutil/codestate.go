package testutil

import (
	"slices"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// Known content ids, computed independently of this module.
const (
	// PrintOneID is the id of SingleFile("print(1)").
	PrintOneID = "d287bb7f9d15abdc5b6e98536263815744b6ef21c8f3c839fc434ca70d8efe99"

	// TwoFileID is the id of TwoFileProject().
	TwoFileID = "dee8866b9c3f64e042652fda3bba07c9c8e3ce2527003624c1fa16508a44ab2f"
)

// SingleFile returns an Entry holding code in its one unnamed section.
func SingleFile(code string) ir.Entry {
	return ir.EntryFromCode(code)
}

// Project returns an Entry with one named section per file, in name order.
func Project(files map[string]string) ir.Entry {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	e := ir.Entry{}
	for _, name := range names {
		e.Sections = append(e.Sections, ir.Section{Name: name, Code: files[name]})
	}
	return e
}

// TwoFileProject returns a.py and b.py.
func TwoFileProject() ir.Entry {
	return Project(map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
	})
}
