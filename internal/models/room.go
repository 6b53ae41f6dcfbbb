package models

// Room is a physical classroom with a geofence used by mobile check-ins.
// The (name, building) pair is unique.
type Room struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Building        string `db:"building" json:"building"`
	CentreLongitude int    `db:"centre_longitude" json:"centre_longitude"`
	CentreLatitude  int    `db:"centre_latitude" json:"centre_latitude"`
	Radius          int    `db:"radius" json:"radius"`
}
