package service

import (
	"fmt"
	"log"
	"time"

	"motorent/internal/db"
	"motorent/internal/entities"
)

// SenderService sends customer notifications after a state change has
// committed. All sends are fire-and-forget: a delivery failure is
// logged and never propagated back into the flow that triggered it.
type SenderService struct {
}

func NewSenderService() *SenderService {
	return &SenderService{}
}

func (s *SenderService) SendOrderEmail(order db.Order, vehicle *db.Vehicle, status string) {
	vehicleModel := ""
	vehiclePlate := ""
	if vehicle != nil {
		vehicleModel = vehicle.Model
		vehiclePlate = vehicle.PlateNumber
	}

	emailData := entities.OrderEmailData{
		UserEmail:         order.UserEmail,
		OrderCode:         order.Code,
		VehicleModel:      vehicleModel,
		VehiclePlate:      vehiclePlate,
		FromDateFormatted: order.FromDate.Format("02 Jan 2006 15:04 MST"),
		ToDateFormatted:   order.ToDate.Format("02 Jan 2006 15:04 MST"),
		Status:            status,
		CurrentYear:       time.Now().Year(),
	}

	emailSubject := fmt.Sprintf("Your Motorent rental is %s - Code: %s", status, emailData.OrderCode)
	plainTextBody := fmt.Sprintf(
		"Hello,\n\nYour rental order at Motorent is %s.\n\n"+
			"Order Details:\n"+
			"Order Code: %s\n"+
			"Vehicle: %s (Plate: %s)\n"+
			"Pick-up: %s\n"+
			"Return: %s\n\n"+
			"Thank you for choosing Motorent.\n\n"+
			"%d Motorent. All rights reserved.",
		status, emailData.OrderCode, emailData.VehicleModel, emailData.VehiclePlate,
		emailData.FromDateFormatted, emailData.ToDateFormatted, emailData.CurrentYear,
	)

	go func(toEmail, subject, plainBody string) {
		if errEmail := SendEmailWithSendGrid(toEmail, subject, plainBody); errEmail != nil {
			log.Printf("WARNING (async): email send failed for order %s: %v", emailData.OrderCode, errEmail)
		}
	}(order.UserEmail, emailSubject, plainTextBody)
}

func (s *SenderService) SendOrderSMS(order db.Order, status string) {
	if order.UserPhone == "" {
		return
	}
	smsMessage := fmt.Sprintf("Motorent: Order %s is %s!\nPick-up: %s.\nMore details in your email.",
		order.Code, status,
		order.FromDate.Format("02/01 15:04"),
	)

	go func(phone, body, code string) {
		if errSMS := SendSMS(phone, body); errSMS != nil {
			log.Printf("WARNING (async): SMS send failed for order %s: %v", code, errSMS)
		}
	}(order.UserPhone, smsMessage, order.Code)
}
