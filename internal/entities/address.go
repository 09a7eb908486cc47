package entities

// Address is hierarchical: a district is only meaningful under its province,
// a ward only under its district. Use the Set* methods so that changing an
// ancestor resets the subordinate selections.
type Address struct {
	ProvinceID int
	DistrictID int
	WardCode   string
	Line       string
}

func (a *Address) SetProvince(id int) {
	if a.ProvinceID == id {
		return
	}
	a.ProvinceID = id
	a.DistrictID = 0
	a.WardCode = ""
}

func (a *Address) SetDistrict(id int) {
	if a.DistrictID == id {
		return
	}
	a.DistrictID = id
	a.WardCode = ""
}

func (a *Address) SetWard(code string) {
	a.WardCode = code
}

// Resolved reports whether all three hierarchy levels are selected.
func (a Address) Resolved() bool {
	return a.ProvinceID > 0 && a.DistrictID > 0 && a.WardCode != ""
}
