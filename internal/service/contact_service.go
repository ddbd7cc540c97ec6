package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/contactsbook/contacts-api/internal/domain"
	"github.com/contactsbook/contacts-api/internal/repository"
	"github.com/contactsbook/contacts-api/pkg/telemetry"
)

// BirthdayWindow is how far ahead UpcomingBirthdays looks.
const BirthdayWindow = 7 * 24 * time.Hour

// ContactService defines the interface for address book operations.
// Every method is scoped to the owning user; a contact belonging to
// someone else behaves exactly like a missing one.
type ContactService interface {
	Create(ctx context.Context, userID int64, contact *domain.Contact) (*domain.Contact, error)
	Get(ctx context.Context, userID, contactID int64) (*domain.Contact, error)
	List(ctx context.Context, userID int64, filter *domain.ContactFilter) ([]*domain.Contact, error)
	Update(ctx context.Context, userID, contactID int64, apply func(*domain.Contact)) (*domain.Contact, error)
	Delete(ctx context.Context, userID, contactID int64) error
	UpcomingBirthdays(ctx context.Context, userID int64) ([]*domain.Contact, error)
}

type contactService struct {
	repo repository.ContactRepository
	now  func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactService{repo: repo, now: time.Now}
}

func (s *contactService) Create(ctx context.Context, userID int64, contact *domain.Contact) (*domain.Contact, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	contact.UserID = userID
	if err := s.repo.Create(ctx, contact); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("contact_id", contact.ID))
	return contact, nil
}

func (s *contactService) Get(ctx context.Context, userID, contactID int64) (*domain.Contact, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.get")
	defer span.End()

	contact, err := s.repo.GetByID(ctx, contactID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if contact == nil {
		span.SetStatus(codes.Error, "contact not found")
		return nil, ErrContactNotFound
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, userID int64, filter *domain.ContactFilter) ([]*domain.Contact, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.list")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	if filter == nil {
		filter = &domain.ContactFilter{}
	}
	contacts, err := s.repo.List(ctx, userID, *filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(contacts)))
	return contacts, nil
}

// Update fetches the contact, applies the mutation and persists it.
// The apply callback lets the handler express partial updates without
// the service knowing which fields were present in the request.
func (s *contactService) Update(ctx context.Context, userID, contactID int64, apply func(*domain.Contact)) (*domain.Contact, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.update")
	defer span.End()

	contact, err := s.repo.GetByID(ctx, contactID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if contact == nil {
		span.SetStatus(codes.Error, "contact not found")
		return nil, ErrContactNotFound
	}

	apply(contact)
	if err := s.repo.Update(ctx, contact); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, userID, contactID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.delete")
	defer span.End()

	deleted, err := s.repo.Delete(ctx, contactID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !deleted {
		span.SetStatus(codes.Error, "contact not found")
		return ErrContactNotFound
	}
	return nil
}

// UpcomingBirthdays returns the user's contacts whose birthday falls
// within the next seven days, inclusive of today.
func (s *contactService) UpcomingBirthdays(ctx context.Context, userID int64) ([]*domain.Contact, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.contact.upcoming_birthdays")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	contacts, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	end := today.Add(BirthdayWindow)

	var upcoming []*domain.Contact
	for _, c := range contacts {
		if c.Birthday.IsZero() {
			continue
		}
		// The anniversary may land this year or, near year end, next
		// year; check both against the window.
		for _, year := range []int{today.Year(), today.Year() + 1} {
			next := nextAnniversary(c.Birthday, year)
			if !next.Before(today) && !next.After(end) {
				upcoming = append(upcoming, c)
				break
			}
		}
	}
	return upcoming, nil
}

// nextAnniversary maps a birthday into the given year. A February 29
// birthday falls back to February 28 in non-leap years.
func nextAnniversary(birthday time.Time, year int) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
