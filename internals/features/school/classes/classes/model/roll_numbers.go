// file: internals/features/school/classes/classes/model/roll_numbers.go
package model

import (
	"sort"
	"strings"
)

// AssignRollNumbers orders the roster by name (case-insensitive), then
// scholar number, and renumbers it 1..N in place. It returns the students
// whose roll number changed.
func AssignRollNumbers(students []StudentModel) []StudentModel {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := strings.ToLower(students[i].StudentName), strings.ToLower(students[j].StudentName)
		if a != b {
			return a < b
		}
		return students[i].StudentScholarNumber < students[j].StudentScholarNumber
	})

	var changed []StudentModel
	for i := range students {
		roll := i + 1
		if students[i].StudentRollNumber != roll {
			students[i].StudentRollNumber = roll
			changed = append(changed, students[i])
		}
	}
	return changed
}
