package chat

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"doctor-portal-server/internal/models"
)

// Store is the persistence surface the negotiation service depends on. Lookup
// methods return (nil, nil) when the record does not exist; errors are
// reserved for storage failures. Transaction runs fn against a store whose
// writes commit or roll back together.
type Store interface {
	Transaction(fn func(Store) error) error

	MessageByID(id string) (*models.Message, error)
	CreateMessage(m *models.Message) error
	SaveMessage(m *models.Message) error
	DeleteMessage(id string) error

	AppointmentByID(id string) (*models.Appointment, error)
	CreateAppointment(a *models.Appointment) error
	SaveAppointment(a *models.Appointment) error
	// HasConflict reports whether the doctor already has a non-cancelled
	// appointment starting within [date-30m, date+30m), excluding excludeID.
	HasConflict(doctorID string, date time.Time, excludeID string) (bool, error)

	PatientByUserID(userID string) (*models.Patient, error)
	PatientByID(id string) (*models.Patient, error)
	UserByID(id string) (*models.User, error)
}

// GormStore implements Store on the application's GORM connection.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Transaction wraps fn in a database transaction. The callback receives a
// store bound to the transactional connection.
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func (s *GormStore) MessageByID(id string) (*models.Message, error) {
	var m models.Message
	if err := s.DB.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) CreateMessage(m *models.Message) error {
	return s.DB.Create(m).Error
}

func (s *GormStore) SaveMessage(m *models.Message) error {
	return s.DB.Save(m).Error
}

func (s *GormStore) DeleteMessage(id string) error {
	return s.DB.Delete(&models.Message{}, "id = ?", id).Error
}

func (s *GormStore) AppointmentByID(id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.DB.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) CreateAppointment(a *models.Appointment) error {
	return s.DB.Create(a).Error
}

func (s *GormStore) SaveAppointment(a *models.Appointment) error {
	return s.DB.Save(a).Error
}

func (s *GormStore) HasConflict(doctorID string, date time.Time, excludeID string) (bool, error) {
	query := s.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status <> ?", doctorID, models.AppointmentCancelled).
		Where("date >= ? AND date < ?",
			date.Add(-models.ConflictWindow), date.Add(models.ConflictWindow))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) PatientByUserID(userID string) (*models.Patient, error) {
	var p models.Patient
	if err := s.DB.First(&p, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) PatientByID(id string) (*models.Patient, error) {
	var p models.Patient
	if err := s.DB.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) UserByID(id string) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
