package service

import (
	"context"
	"strings"
	"time"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/storage"
)

// Stats summarizes the portal for the admin dashboard.
type Stats struct {
	TotalUsers        int64 `json:"total_users"`
	TotalTags         int64 `json:"total_tags"`
	TotalResources    int64 `json:"total_resources"`
	PendingResources  int64 `json:"pending_resources"`
	ApprovedResources int64 `json:"approved_resources"`
	RejectedResources int64 `json:"rejected_resources"`
}

// StorageSweepGrace is the minimum age of an unreferenced object before SweepStorage removes it.
const StorageSweepGrace = time.Hour

// OrphanReport lists what a cleanup pass found and removed.
type OrphanReport struct {
	Resources []model.Resource
	Objects   []string
}

// AdminService covers user administration and maintenance passes.
type AdminService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	// DeleteUser removes a user with their resources, ratings, favorites and notifications.
	DeleteUser(ctx context.Context, admin *model.User, userID string) error
	Stats(ctx context.Context) (*Stats, error)
	// CleanOrphanResources deletes resources whose uploader no longer exists.
	CleanOrphanResources(ctx context.Context, dryRun bool) (*OrphanReport, error)
	// SweepStorage removes stored objects under the upload folder that no resource references.
	SweepStorage(ctx context.Context, dryRun bool) (*OrphanReport, error)
}

type adminService struct {
	repos  *repository.Repositories
	store  storage.ObjectStore
	queue  CleanupQueue
	unread repository.UnreadCountCache
	folder string
}

// NewAdminService creates an AdminService.
func NewAdminService(repos *repository.Repositories, store storage.ObjectStore, queue CleanupQueue, unread repository.UnreadCountCache, folder string) AdminService {
	return &adminService{repos: repos, store: store, queue: queue, unread: unread, folder: folder}
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repos.Users.FindAll(ctx)
}

// DeleteUser removes an account together with everything it owns.
func (s *adminService) DeleteUser(ctx context.Context, admin *model.User, userID string) error {
	if admin.ID == userID {
		return ErrCannotDeleteSelf
	}

	var removed []model.Resource
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return notFound(err, ErrUserNotFound)
		}

		owned, err := tx.Resources.FindByUploader(ctx, userID)
		if err != nil {
			return err
		}
		gone := make(map[string]bool, len(owned))
		for _, res := range owned {
			if err := deleteResourceRows(ctx, tx, res.ID); err != nil {
				return err
			}
			gone[res.ID] = true
		}

		rated, err := tx.Ratings.ResourceIDsRatedBy(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Ratings.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		for _, id := range rated {
			if gone[id] {
				continue
			}
			if err := refreshRatingAggregate(ctx, tx, id); err != nil {
				return err
			}
		}

		if err := tx.Favorites.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Notifications.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Resources.ClearReviewer(ctx, userID); err != nil {
			return err
		}
		if err := tx.Downloads.ClearUser(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.Users.Delete(ctx, userID); err != nil {
			return err
		}
		removed = owned
		return nil
	})
	if err != nil {
		return err
	}

	for _, res := range removed {
		removeObject(ctx, s.store, s.queue, res.StorageKey, res.ID)
	}
	invalidateUnread(ctx, s.unread, userID)
	log.Infow("[AdminService] user deleted", "user_id", userID, "resources", len(removed), "by", admin.ID)
	return nil
}

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repos.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.repos.Tags.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repos.Resources.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		TotalUsers:        users,
		TotalTags:         tags,
		PendingResources:  byStatus[model.StatusPending],
		ApprovedResources: byStatus[model.StatusApproved],
		RejectedResources: byStatus[model.StatusRejected],
	}
	st.TotalResources = st.PendingResources + st.ApprovedResources + st.RejectedResources
	return st, nil
}

// CleanOrphanResources removes resources whose uploader is gone.
func (s *adminService) CleanOrphanResources(ctx context.Context, dryRun bool) (*OrphanReport, error) {
	orphans, err := s.repos.Resources.FindOrphans(ctx)
	if err != nil {
		return nil, err
	}
	report := &OrphanReport{Resources: orphans}
	if dryRun || len(orphans) == 0 {
		return report, nil
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		for _, res := range orphans {
			if err := deleteResourceRows(ctx, tx, res.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, res := range orphans {
		removeObject(ctx, s.store, s.queue, res.StorageKey, res.ID)
	}
	log.Infof("[AdminService] removed %d orphaned resources", len(orphans))
	return report, nil
}

// SweepStorage removes stored objects no resource references.
func (s *adminService) SweepStorage(ctx context.Context, dryRun bool) (*OrphanReport, error) {
	prefix := strings.TrimSuffix(s.folder, "/") + "/"
	stored, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, upstreamError("Failed to list stored objects", err)
	}
	referenced, err := s.repos.Resources.StorageKeys(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(referenced))
	for _, k := range referenced {
		known[k] = true
	}

	report := &OrphanReport{}
	for _, obj := range stored {
		// an upload stores its object before the resource row commits
		if known[obj.Key] || time.Since(obj.LastModified) < StorageSweepGrace {
			continue
		}
		report.Objects = append(report.Objects, obj.Key)
		if !dryRun {
			removeObject(ctx, s.store, s.queue, obj.Key, "")
		}
	}
	if !dryRun {
		log.Infof("[AdminService] swept %d unreferenced objects", len(report.Objects))
	}
	return report, nil
}
