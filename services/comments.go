package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/utils"
)

const maxCommentLength = 5000

// CommentService manages nested comments.
type CommentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
}

// NewCommentService creates a CommentService.
func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository) *CommentService {
	return &CommentService{posts: posts, comments: comments}
}

// Create adds a comment to postID, optionally as a reply to parentID.
func (s *CommentService) Create(ctx context.Context, postID, userID uint, parentID *uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(utils.Sanitize(content))
	if content == "" {
		return nil, models.NewValidationError("content must not be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, models.NewValidationError("content is too long")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, notFoundOrInternal(err, "Post", postID)
	}
	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			return nil, notFoundOrInternal(err, "Comment", *parentID)
		}
		if parent.PostID != postID {
			return nil, models.NewValidationError("parent comment belongs to another post")
		}
	}

	c := &models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, models.NewInternalError(err)
	}
	created, err := s.comments.GetByID(ctx, c.ID)
	if err != nil {
		return c, nil
	}
	return created, nil
}

// Tree returns the comments of postID as a forest ordered by creation time.
func (s *CommentService) Tree(ctx context.Context, postID uint) ([]*models.Comment, error) {
	flat, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return BuildCommentTree(flat), nil
}

// Delete removes a comment and its replies. Only the author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint, isAdmin bool) (int64, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return 0, notFoundOrInternal(err, "Comment", commentID)
	}
	if c.UserID != userID && !isAdmin {
		return 0, models.NewForbiddenError("not allowed to delete this comment")
	}
	n, err := s.comments.DeleteTree(ctx, commentID)
	if err != nil {
		return 0, notFoundOrInternal(err, "Comment", commentID)
	}
	return n, nil
}

// BuildCommentTree links flat comments into parent/child trees. Replies whose
// parent is missing are promoted to roots.
func BuildCommentTree(flat []*models.Comment) []*models.Comment {
	byID := make(map[uint]*models.Comment, len(flat))
	for _, c := range flat {
		c.Replies = []*models.Comment{}
		byID[c.ID] = c
	}
	roots := make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

func notFoundOrInternal(err error, resource string, id interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
