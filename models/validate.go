package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"audit_action", validateAuditActionType,
	); err != nil {
		return err
	}

	return nil
}

func validateAuditActionType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch AuditActionENUMType(fl.Field().String()) {
	case AuditActionSignup:
		fallthrough
	case AuditActionLogin:
		fallthrough
	case AuditActionUpload:
		fallthrough
	case AuditActionDownload:
		fallthrough
	case AuditActionDelete:
		fallthrough
	case AuditActionReminderSent:
		fallthrough
	case AuditActionSummaryExport:
		return true
	}
	return false
}
