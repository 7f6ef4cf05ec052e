package models

import "strings"

type BloodGroup string

const (
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

// BloodGroups lists every canonical group.
var BloodGroups = []BloodGroup{
	BloodGroupOPos, BloodGroupONeg,
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
}

func (g BloodGroup) Valid() bool {
	for _, c := range BloodGroups {
		if g == c {
			return true
		}
	}
	return false
}

// ParseBloodGroup accepts surrounding whitespace and lower case ("ab+").
func ParseBloodGroup(s string) (BloodGroup, bool) {
	g := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", false
	}
	return g, true
}
