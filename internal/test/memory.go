package test

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/exceptions"
)

// In-memory stand-ins for the hosted document store. They honor the
// same contracts the DynamoDB repositories do: store-assigned ids,
// write-once creation fields, idempotent deletes, and strict less-than
// age filtering.

type RequestStore struct {
	mu         sync.Mutex
	items      map[string]data.MaintenanceRequestDTO
	Clock      func() time.Time
	FailDelete map[string]error
	FailList   error
}

func NewRequestStore() *RequestStore {
	return &RequestStore{
		items: make(map[string]data.MaintenanceRequestDTO),
		Clock: time.Now,
	}
}

func _requestKey(branchCode, id string) string {
	return fmt.Sprintf("%s:Request:%s", branchCode, id)
}

// Seed inserts a document directly, bypassing creation defaults, so
// tests can plant aged or already-transitioned requests.
func (rs *RequestStore) Seed(dto data.MaintenanceRequestDTO) data.MaintenanceRequestDTO {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if dto.SK == "" {
		dto.SK = uuid.NewString()
	}
	dto.PK = fmt.Sprintf("%s:Request", dto.BranchCode)
	rs.items[_requestKey(dto.BranchCode, dto.SK)] = dto
	return dto
}

func (rs *RequestStore) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.items)
}

func (rs *RequestStore) Create(branchCode string, input data.MaintenanceRequestInputDTO) (data.MaintenanceRequestDTO, error) {
	now := rs.Clock()
	dto := data.MaintenanceRequestDTO{
		PK:          fmt.Sprintf("%s:Request", branchCode),
		SK:          uuid.NewString(),
		FirstIndex:  "Request",
		BranchCode:  branchCode,
		Status:      data.StatusUnderReview,
		Category:    input.Category,
		ImageUrl:    input.ImageUrl,
		Timestamp:   now,
		UpdateTime:  now,
	}
	if input.Title != nil {
		dto.Title = *input.Title
	}
	if input.Description != nil {
		dto.Description = *input.Description
	}
	if input.SubmittedBy != nil {
		dto.SubmittedBy = *input.SubmittedBy
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.items[_requestKey(branchCode, dto.SK)] = dto
	return dto, nil
}

func (rs *RequestStore) Get(branchCode string, itemId string) (data.MaintenanceRequestDTO, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	dto, ok := rs.items[_requestKey(branchCode, itemId)]
	if !ok {
		return data.MaintenanceRequestDTO{}, exceptions.NotFound("request", itemId)
	}
	return dto, nil
}

func (rs *RequestStore) Update(branchCode string, itemId string, input data.MaintenanceRequestInputDTO) (data.MaintenanceRequestDTO, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	key := _requestKey(branchCode, itemId)
	dto, ok := rs.items[key]
	if !ok {
		return data.MaintenanceRequestDTO{}, exceptions.NotFound("request", itemId)
	}
	if input.Status != nil {
		dto.Status = *input.Status
	}
	if input.Rating != nil {
		dto.Rating = input.Rating
	}
	if input.Feedback != nil {
		dto.Feedback = input.Feedback
	}
	if input.ResolutionNote != nil {
		dto.ResolutionNote = input.ResolutionNote
	}
	dto.UpdateTime = rs.Clock()
	rs.items[key] = dto
	return dto, nil
}

func (rs *RequestStore) Delete(branchCode string, itemId string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err, ok := rs.FailDelete[itemId]; ok {
		return err
	}
	delete(rs.items, _requestKey(branchCode, itemId))
	return nil
}

func (rs *RequestStore) List(branchCode string, params data.QueryParams) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	return rs.filtered(func(dto data.MaintenanceRequestDTO) bool {
		return dto.BranchCode == branchCode
	})
}

func (rs *RequestStore) ListAll(params data.QueryParams) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	return rs.filtered(func(data.MaintenanceRequestDTO) bool { return true })
}

func (rs *RequestStore) ListCompletedBefore(cutoff time.Time, params data.QueryParams) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	return rs.filtered(func(dto data.MaintenanceRequestDTO) bool {
		return dto.Status == data.StatusCompleted && dto.Timestamp.Before(cutoff)
	})
}

func (rs *RequestStore) filtered(match func(data.MaintenanceRequestDTO) bool) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.FailList != nil {
		return data.QueryResults[data.MaintenanceRequestDTO]{}, rs.FailList
	}
	items := make([]data.MaintenanceRequestDTO, 0)
	for _, dto := range rs.items {
		if match(dto) {
			items = append(items, dto)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return data.QueryResults[data.MaintenanceRequestDTO]{Items: items}, nil
}

type NotificationStore struct {
	mu         sync.Mutex
	items      map[string]data.NotificationDTO
	Clock      func() time.Time
	FailDelete map[string]error
	FailList   error
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		items: make(map[string]data.NotificationDTO),
		Clock: time.Now,
	}
}

func _notificationKey(branchCode, id string) string {
	return fmt.Sprintf("%s:Notification:%s", branchCode, id)
}

func (ns *NotificationStore) Seed(dto data.NotificationDTO) data.NotificationDTO {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if dto.SK == "" {
		dto.SK = uuid.NewString()
	}
	dto.PK = fmt.Sprintf("%s:Notification", dto.BranchCode)
	ns.items[_notificationKey(dto.BranchCode, dto.SK)] = dto
	return dto
}

func (ns *NotificationStore) Len() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return len(ns.items)
}

func (ns *NotificationStore) Create(branchCode string, input data.NotificationInputDTO) (data.NotificationDTO, error) {
	now := ns.Clock()
	dto := data.NotificationDTO{
		PK:         fmt.Sprintf("%s:Notification", branchCode),
		SK:         uuid.NewString(),
		FirstIndex: "Notification",
		BranchCode: branchCode,
		Timestamp:  now,
		UpdateTime: now,
	}
	if input.Title != nil {
		dto.Title = *input.Title
	}
	if input.Message != nil {
		dto.Message = *input.Message
	}
	if input.Type != nil {
		dto.Type = *input.Type
	}
	if input.IsForManager != nil {
		dto.IsForManager = *input.IsForManager
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.items[_notificationKey(branchCode, dto.SK)] = dto
	return dto, nil
}

func (ns *NotificationStore) Get(branchCode string, itemId string) (data.NotificationDTO, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	dto, ok := ns.items[_notificationKey(branchCode, itemId)]
	if !ok {
		return data.NotificationDTO{}, exceptions.NotFound("notification", itemId)
	}
	return dto, nil
}

func (ns *NotificationStore) Update(branchCode string, itemId string, input data.NotificationInputDTO) (data.NotificationDTO, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	key := _notificationKey(branchCode, itemId)
	dto, ok := ns.items[key]
	if !ok {
		return data.NotificationDTO{}, exceptions.NotFound("notification", itemId)
	}
	if input.Read != nil {
		dto.Read = *input.Read
	}
	dto.UpdateTime = ns.Clock()
	ns.items[key] = dto
	return dto, nil
}

func (ns *NotificationStore) Delete(branchCode string, itemId string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if err, ok := ns.FailDelete[itemId]; ok {
		return err
	}
	delete(ns.items, _notificationKey(branchCode, itemId))
	return nil
}

func (ns *NotificationStore) List(branchCode string, params data.QueryParams) (data.QueryResults[data.NotificationDTO], error) {
	return ns.filtered(func(dto data.NotificationDTO) bool {
		return dto.BranchCode == branchCode
	})
}

func (ns *NotificationStore) ListAll(params data.QueryParams) (data.QueryResults[data.NotificationDTO], error) {
	return ns.filtered(func(data.NotificationDTO) bool { return true })
}

func (ns *NotificationStore) ListCreatedBefore(cutoff time.Time, params data.QueryParams) (data.QueryResults[data.NotificationDTO], error) {
	return ns.filtered(func(dto data.NotificationDTO) bool {
		return dto.Timestamp.Before(cutoff)
	})
}

func (ns *NotificationStore) filtered(match func(data.NotificationDTO) bool) (data.QueryResults[data.NotificationDTO], error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.FailList != nil {
		return data.QueryResults[data.NotificationDTO]{}, ns.FailList
	}
	items := make([]data.NotificationDTO, 0)
	for _, dto := range ns.items {
		if match(dto) {
			items = append(items, dto)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return data.QueryResults[data.NotificationDTO]{Items: items}, nil
}

// ImageStore records deletion calls instead of talking to a hosting
// service.
type ImageStore struct {
	mu        sync.Mutex
	CanDelete bool
	Fail      map[string]error
	Deleted   []string
}

func NewImageStore(canDelete bool) *ImageStore {
	return &ImageStore{CanDelete: canDelete}
}

func (is *ImageStore) SupportsDelete() bool {
	return is.CanDelete
}

func (is *ImageStore) Delete(imageUrl string) error {
	is.mu.Lock()
	defer is.mu.Unlock()
	if err, ok := is.Fail[imageUrl]; ok {
		return err
	}
	is.Deleted = append(is.Deleted, imageUrl)
	return nil
}
