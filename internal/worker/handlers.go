package worker

import (
	"context"
	"log"

	"gorm.io/gorm"
)

// NewInvitationNotificationHandler logs invitation events. Actual mail
// delivery sits outside this service; the job exists so a sender can be
// attached without touching the invitation workflow.
func NewInvitationNotificationHandler() JobHandler {
	return func(ctx context.Context, job *Job) error {
		log.Printf("invitation %v created for %v", job.Payload["invitation_id"], job.Payload["invitee_email"])
		return nil
	}
}

// NewDueDateReminderHandler logs an upcoming due date for a task.
func NewDueDateReminderHandler(db *gorm.DB) JobHandler {
	return func(ctx context.Context, job *Job) error {
		taskID, _ := job.Payload["task_id"].(string)

		var title string
		err := db.WithContext(ctx).
			Table("tasks").
			Select("title").
			Where("id = ?", taskID).
			Scan(&title).Error
		if err != nil {
			return err
		}
		if title == "" {
			// Task deleted before the reminder fired.
			return nil
		}

		log.Printf("task %s (%s) is due at %v", taskID, title, job.Payload["due"])
		return nil
	}
}

// NewDependencyCleanupHandler prunes dependency edges that point at
// tasks deleted by a bulk delete. Bulk delete intentionally leaves those
// edges behind; this job removes them out of band.
func NewDependencyCleanupHandler(db *gorm.DB) JobHandler {
	return func(ctx context.Context, job *Job) error {
		result := db.WithContext(ctx).Exec(`
			DELETE FROM task_dependencies
			WHERE depends_on_task_id NOT IN (SELECT id FROM tasks)
			   OR task_id NOT IN (SELECT id FROM tasks)`)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected > 0 {
			log.Printf("pruned %d dangling dependency edges", result.RowsAffected)
		}
		return nil
	}
}
