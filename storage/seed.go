package storage

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/kataras/golog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultListingFee is charged in KES for listings beyond the free allowance
// until an admin sets another amount.
const DefaultListingFee = 200

var defaultAmenities = []string{
	"Parking", "Wi-Fi", "Borehole", "Backup generator", "Security guard",
	"CCTV", "Swimming pool", "Gym", "Balcony", "Garden", "Lift",
	"Servant quarters", "Water tank", "Electric fence", "Pet friendly",
}

// SeedReferenceData inserts the amenity catalogue and the listing fee row.
// Existing rows are left untouched, so it is safe to run repeatedly.
func SeedReferenceData(db *gorm.DB) error {
	amenities := make([]models.Amenity, 0, len(defaultAmenities))
	for _, name := range defaultAmenities {
		amenities = append(amenities, models.Amenity{Name: name})
	}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&amenities)
	if res.Error != nil {
		return res.Error
	}

	fee := models.ListingFee{ID: models.ListingFeeRowID, Amount: DefaultListingFee}
	feeRes := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fee)
	if feeRes.Error != nil {
		return feeRes.Error
	}

	golog.Infof("seeded %d amenities, listing fee row created: %t", res.RowsAffected, feeRes.RowsAffected > 0)
	return nil
}
