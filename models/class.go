package models

// Class is the read-only class definition consumed by the availability
// filter and the admission controller. GroupSize is the seat capacity of a
// group time slot belonging to this class.
type Class struct {
	ID           string  `bson:"id" json:"id"`
	InstructorID string  `bson:"instructorId" json:"instructorId"`
	Title        string  `bson:"title" json:"title"`
	GroupSize    int     `bson:"groupSize" json:"groupSize"`
	Price        float64 `bson:"price" json:"price"`           // per individual session
	GroupPrice   float64 `bson:"groupPrice" json:"groupPrice"` // per seat in a group session
}
