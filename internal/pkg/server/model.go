package server

import "github.com/anicoll/anova-integration/internal/pkg/model"

type cookRequest struct {
	Recipe string        `json:"recipe,omitempty"`
	Stages []model.Stage `json:"stages,omitempty"`
}

type cookResponse struct {
	CookID string `json:"cookId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type recipeResponse struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
	Device   string `json:"device,omitempty"`
	Stages   int    `json:"stages"`
}

type deviceResponse struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	FirmwareVersion string      `json:"firmwareVersion,omitempty"`
	HardwareVersion string      `json:"hardwareVersion,omitempty"`
	Mode            model.Mode  `json:"mode"`
	On              bool        `json:"on"`
	Cook            *model.Cook `json:"cook,omitempty"`
}

type deviceDetailResponse struct {
	deviceResponse
	State model.OvenState `json:"state"`
}

func toDeviceResponse(o Oven) deviceResponse {
	device := o.Device()
	state := o.State()
	return deviceResponse{
		ID:              device.ID,
		Name:            device.Name,
		FirmwareVersion: device.FirmwareVersion,
		HardwareVersion: device.HardwareVersion,
		Mode:            state.State.Mode,
		On:              o.IsOn(),
		Cook:            state.Cook,
	}
}
