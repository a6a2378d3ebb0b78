package entities

type OrderEmailData struct {
	UserEmail          string
	OrderCode          string
	VehicleModel       string
	VehiclePlate       string
	FromDateFormatted  string
	ToDateFormatted    string
	Status             string
	CurrentYear        int
}
