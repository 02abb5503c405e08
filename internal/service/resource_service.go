package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/tasks"
)

var allowedContentTypes = map[string]model.FileType{
	"application/pdf": model.FileTypePDF,

	"image/jpeg": model.FileTypeImage,
	"image/jpg":  model.FileTypeImage,
	"image/png":  model.FileTypeImage,

	"application/msword":            model.FileTypeDoc,
	"application/vnd.ms-powerpoint": model.FileTypePPT,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   model.FileTypeDoc,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": model.FileTypePPT,
}

// FileTypeFor maps a Content-Type header to a FileType.
func FileTypeFor(contentType string) (model.FileType, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	ft, ok := allowedContentTypes[strings.ToLower(mediaType)]
	return ft, ok
}

// UploadInput is one file submitted through the upload form.
type UploadInput struct {
	Title       string
	Description string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	TagIDs      []string
}

// ResourceOptions configures storage and limits for ResourceService.
type ResourceOptions struct {
	MaxUploadBytes int64
	Folder         string
	PresignExpiry  time.Duration
	// PDFViewerURL wraps PDF links; %s receives the escaped file URL.
	PDFViewerURL string
}

// ResourceService covers the resource lifecycle from upload to deletion.
type ResourceService interface {
	Upload(ctx context.Context, user *model.User, in UploadInput) (*model.Resource, error)
	ListApproved(ctx context.Context, tagSlug string) ([]model.Resource, error)
	ListMine(ctx context.Context, user *model.User) ([]model.Resource, error)
	ListAll(ctx context.Context, status string) ([]model.Resource, error)
	Search(ctx context.Context, query, fileType string) ([]model.Resource, error)
	// Get returns a resource visible to user; user may be nil for anonymous callers.
	Get(ctx context.Context, user *model.User, id string) (*model.Resource, error)
	Update(ctx context.Context, user *model.User, id, title, description string) (*model.Resource, error)
	SetTags(ctx context.Context, user *model.User, id string, tagIDs []string) (*model.Resource, error)
	Approve(ctx context.Context, admin *model.User, id string) (*model.Resource, error)
	Reject(ctx context.Context, admin *model.User, id, reason string) (*model.Resource, error)
	Delete(ctx context.Context, user *model.User, id string) error
	// View counts a view of an approved resource and returns where to send the client.
	View(ctx context.Context, id string) (string, error)
	// Download counts a download, logs it, and returns a link to the file.
	Download(ctx context.Context, user *model.User, id string) (string, error)
}

type resourceService struct {
	repos  *repository.Repositories
	store  storage.ObjectStore
	queue  CleanupQueue
	unread repository.UnreadCountCache
	opts   ResourceOptions
}

// NewResourceService creates a ResourceService.
func NewResourceService(repos *repository.Repositories, store storage.ObjectStore, queue CleanupQueue, unread repository.UnreadCountCache, opts ResourceOptions) ResourceService {
	return &resourceService{repos: repos, store: store, queue: queue, unread: unread, opts: opts}
}

func (s *resourceService) fileTooLarge() error {
	return &Error{
		Kind: KindTooLarge,
		Msg:  fmt.Sprintf("File too large. Maximum size is %s", humanSize(s.opts.MaxUploadBytes)),
		Err:  ErrFileTooLarge,
	}
}

func humanSize(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// Upload stores the file and creates a pending resource for it.
func (s *resourceService) Upload(ctx context.Context, user *model.User, in UploadInput) (*model.Resource, error) {
	if user.Role != model.RoleStudent {
		return nil, ErrUploadForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Body == nil {
		return nil, ErrTitleRequired
	}
	fileType, ok := FileTypeFor(in.ContentType)
	if !ok {
		return nil, ErrInvalidFileType
	}
	if in.Size > s.opts.MaxUploadBytes {
		return nil, s.fileTooLarge()
	}
	tagIDs, err := s.checkTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Put(ctx, s.opts.Folder, in.FileName, in.Body, in.Size, in.ContentType)
	if err != nil {
		log.Error("[ResourceService] storage upload failed", err)
		return nil, upstreamError("Failed to upload file to storage", err)
	}

	res := &model.Resource{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FileURL:     obj.URL,
		StorageKey:  obj.Key,
		FileType:    fileType,
		FileSize:    in.Size,
		MimeType:    in.ContentType,
		UploadedBy:  user.ID,
		Status:      model.StatusPending,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Resources.Create(ctx, res); err != nil {
			return err
		}
		return tx.Tags.ReplaceResourceTags(ctx, res.ID, tagIDs)
	})
	if err != nil {
		log.Errorf("[ResourceService] insert after upload failed, queueing %s for cleanup: %v", obj.Key, err)
		enqueueCleanup(ctx, s.queue, tasks.StorageCleanupTask{
			ObjectKey: obj.Key,
			Reason:    tasks.ReasonUploadRollback,
		})
		return nil, err
	}

	log.Infow("[ResourceService] resource uploaded", "resource_id", res.ID, "user_id", user.ID, "file_type", fileType, "size", in.Size)
	created, err := s.repos.Resources.FindByID(ctx, res.ID)
	if err != nil {
		return res, nil
	}
	return created, nil
}

// checkTags deduplicates ids and verifies each one exists.
func (s *resourceService) checkTags(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, nil
	}
	found, err := s.repos.Tags.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, ErrUnknownTags
	}
	return unique, nil
}

func (s *resourceService) ListApproved(ctx context.Context, tagSlug string) ([]model.Resource, error) {
	return s.repos.Resources.List(ctx, repository.ResourceFilter{
		Status:  model.StatusApproved,
		TagSlug: strings.TrimSpace(tagSlug),
	})
}

func (s *resourceService) ListMine(ctx context.Context, user *model.User) ([]model.Resource, error) {
	return s.repos.Resources.List(ctx, repository.ResourceFilter{UploadedBy: user.ID})
}

func (s *resourceService) ListAll(ctx context.Context, status string) ([]model.Resource, error) {
	st := model.ResourceStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repos.Resources.List(ctx, repository.ResourceFilter{Status: st})
}

func (s *resourceService) Search(ctx context.Context, query, fileType string) ([]model.Resource, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrSearchQueryRequired
	}
	ft := model.FileType(strings.TrimSpace(fileType))
	if ft == "all" {
		ft = ""
	}
	if ft != "" && !ft.Valid() {
		return nil, ErrInvalidFileFilter
	}
	return s.repos.Resources.Search(ctx, query, ft)
}

func canSee(user *model.User, res *model.Resource) bool {
	if res.Status == model.StatusApproved {
		return true
	}
	return user != nil && (user.Role == model.RoleAdmin || user.ID == res.UploadedBy)
}

func (s *resourceService) Get(ctx context.Context, user *model.User, id string) (*model.Resource, error) {
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrResourceNotFound)
	}
	if !canSee(user, res) {
		return nil, ErrResourceNotFound
	}
	return res, nil
}

func (s *resourceService) Update(ctx context.Context, user *model.User, id, title, description string) (*model.Resource, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("Title is required")
	}
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrResourceNotFound)
	}
	if res.UploadedBy != user.ID {
		return nil, ErrNotOwner
	}
	if res.Status != model.StatusPending {
		return nil, ErrNotPending
	}
	if err := s.repos.Resources.UpdateDetails(ctx, id, title, strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	return s.repos.Resources.FindByID(ctx, id)
}

// SetTags replaces the resource's tags. Owners and admins only.
func (s *resourceService) SetTags(ctx context.Context, user *model.User, id string, tagIDs []string) (*model.Resource, error) {
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrResourceNotFound)
	}
	if user.Role != model.RoleAdmin && res.UploadedBy != user.ID {
		return nil, ErrNotOwner
	}
	ids, err := s.checkTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Resources.FindByIDForUpdate(ctx, id); err != nil {
			return notFound(err, ErrResourceNotFound)
		}
		return tx.Tags.ReplaceResourceTags(ctx, id, ids)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Resources.FindByID(ctx, id)
}

func (s *resourceService) Approve(ctx context.Context, admin *model.User, id string) (*model.Resource, error) {
	return s.review(ctx, admin, id, model.StatusApproved, "")
}

// Reject moves a resource to rejected and notifies the uploader.
func (s *resourceService) Reject(ctx context.Context, admin *model.User, id, reason string) (*model.Resource, error) {
	return s.review(ctx, admin, id, model.StatusRejected, strings.TrimSpace(reason))
}

// review moves a pending resource to target and notifies the uploader in the
// same transaction. Repeating the transition already applied is a no-op.
func (s *resourceService) review(ctx context.Context, admin *model.User, id string, target model.ResourceStatus, reason string) (*model.Resource, error) {
	var notified string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		res, err := tx.Resources.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrResourceNotFound)
		}
		switch res.Status {
		case target:
			return nil
		case model.StatusPending:
		default:
			return ErrInvalidTransition
		}

		if err := tx.Resources.UpdateReview(ctx, id, target, admin.ID, time.Now()); err != nil {
			return err
		}
		if err := tx.Notifications.Create(ctx, reviewNotification(res, target, reason)); err != nil {
			return err
		}
		notified = res.UploadedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notified != "" {
		invalidateUnread(ctx, s.unread, notified)
		log.Infow("[ResourceService] resource reviewed", "resource_id", id, "status", target, "admin_id", admin.ID)
	}
	return s.repos.Resources.FindByID(ctx, id)
}

func reviewNotification(res *model.Resource, status model.ResourceStatus, reason string) *model.Notification {
	resourceID := res.ID
	n := &model.Notification{UserID: res.UploadedBy, ResourceID: &resourceID}
	if status == model.StatusApproved {
		n.Type = model.NotificationApproval
		n.Title = "Resource Approved"
		n.Message = fmt.Sprintf("Your resource %q has been approved and is now visible to everyone.", res.Title)
		return n
	}
	n.Type = model.NotificationRejection
	n.Title = "Resource Rejected"
	n.Message = fmt.Sprintf("Your resource %q has been rejected.", res.Title)
	if reason != "" {
		n.Message += " Reason: " + reason
	}
	return n
}

// Delete removes a resource, its dependent rows and its stored file.
func (s *resourceService) Delete(ctx context.Context, user *model.User, id string) error {
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return notFound(err, ErrResourceNotFound)
	}
	if user.Role != model.RoleAdmin {
		if res.UploadedBy != user.ID {
			return ErrDeleteForbidden
		}
		if res.Status != model.StatusPending {
			return ErrDeletePendingOnly
		}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return deleteResourceRows(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	removeObject(ctx, s.store, s.queue, res.StorageKey, res.ID)
	log.Infow("[ResourceService] resource deleted", "resource_id", id, "by", user.ID)
	return nil
}

// View counts a view and returns the URL the browser is redirected to.
func (s *resourceService) View(ctx context.Context, id string) (string, error) {
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return "", notFound(err, ErrResourceNotFound)
	}
	if res.Status != model.StatusApproved {
		return "", ErrResourceNotFound
	}
	if err := s.repos.Resources.IncrementViewCount(ctx, id); err != nil {
		return "", err
	}

	link := s.fileLink(ctx, res)
	if res.FileType == model.FileTypePDF && strings.Contains(s.opts.PDFViewerURL, "%s") {
		return fmt.Sprintf(s.opts.PDFViewerURL, url.QueryEscape(link)), nil
	}
	return link, nil
}

// Download counts a download and returns a presigned URL.
func (s *resourceService) Download(ctx context.Context, user *model.User, id string) (string, error) {
	res, err := s.repos.Resources.FindByID(ctx, id)
	if err != nil {
		return "", notFound(err, ErrResourceNotFound)
	}
	if !canSee(user, res) {
		return "", ErrResourceNotFound
	}

	entry := &model.DownloadHistory{ResourceID: id}
	if user != nil {
		uid := user.ID
		entry.UserID = &uid
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Resources.IncrementDownloadCount(ctx, id); err != nil {
			return err
		}
		return tx.Downloads.Create(ctx, entry)
	})
	if err != nil {
		return "", err
	}
	return s.fileLink(ctx, res), nil
}

// fileLink prefers a presigned URL and falls back to the stored public URL.
func (s *resourceService) fileLink(ctx context.Context, res *model.Resource) string {
	if res.StorageKey == "" || s.opts.PresignExpiry <= 0 {
		return res.FileURL
	}
	link, err := s.store.PresignedURL(ctx, res.StorageKey, s.opts.PresignExpiry)
	if err != nil {
		log.Warnf("[ResourceService] presign %s failed, using public url: %v", res.StorageKey, err)
		return res.FileURL
	}
	return link
}
