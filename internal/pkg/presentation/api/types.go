package api

type registrationRequest struct {
	DeviceID   string `json:"deviceID"`
	Location   string `json:"location"`
	DeviceType string `json:"deviceType"`
}

type statusRequest struct {
	Status string `json:"status"`
}
