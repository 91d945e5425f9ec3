package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Title        string          `json:"title" gorm:"type:varchar(255);not null"`
	InstructorID uint64          `json:"instructorId" gorm:"index"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	ThumbnailURL string          `json:"thumbnailUrl" gorm:"type:varchar(512)"`
	VideoURL     string          `json:"videoUrl" gorm:"type:varchar(512)"`
	NotesURL     string          `json:"notesUrl" gorm:"type:varchar(512)"`
	Lectures     []Lecture       `json:"lectures" gorm:"foreignKey:CourseID"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// IsFree reports an exactly zero price. Negative prices are neither free nor
// purchasable; see PriceValid.
func (c *Course) IsFree() bool {
	return c.Price.IsZero()
}

func (c *Course) PriceValid() bool {
	return !c.Price.IsNegative()
}

// MinorUnits converts the price to the gateway's smallest currency unit.
func (c *Course) MinorUnits() int64 {
	return c.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type Lecture struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	CourseID uint64 `json:"-" gorm:"not null;index"`
	Title    string `json:"title" gorm:"type:varchar(255)"`
	VideoURL string `json:"videoUrl" gorm:"type:varchar(512)"`
	Position int    `json:"position"`
}

// CourseStudent is the course's enrolled-student set. The composite primary
// key makes adding a member idempotent.
type CourseStudent struct {
	CourseID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	StudentID uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
