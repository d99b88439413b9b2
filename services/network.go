package services

import (
	"context"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Network maintains the connection and follow graph. Every edge change spans
// two user documents and is applied step by step: if the second write fails
// the first one stays, and retrying the operation repairs the other side.
type Network struct {
	users    repository.UserRepository
	notifier *Notifier
}

func NewNetwork(users repository.UserRepository, notifier *Notifier) *Network {
	return &Network{users: users, notifier: notifier}
}

func (s *Network) RequestConnection(ctx context.Context, requester *models.User, targetID primitive.ObjectID) error {
	if requester.ID == targetID {
		return Validation("You cannot connect with yourself")
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return orNotFound(err, "User not found", "load connection target")
	}
	if target.HasPendingFrom(requester.ID) {
		return Conflict("Connection request already sent")
	}
	if target.IsConnectedTo(requester.ID) || requester.IsConnectedTo(targetID) {
		return Conflict("Already connected")
	}

	added, err := s.users.AddPendingRequest(ctx, targetID, requester.ID)
	if err != nil {
		return errors.Wrap(err, "add pending request")
	}
	if !added {
		// lost a race with an identical request or an accept
		return Conflict("Connection request already sent")
	}

	_, err = s.notifier.Notify(ctx, targetID, &requester.ID, models.NotifyConnectionRequest,
		models.UserRef(requester.ID), requester.DisplayName()+" wants to connect")
	return err
}

// AcceptConnection moves requester from the user's pending set into both
// connection sets. The first write is conditional on the pending entry, so a
// concurrent reject and accept cannot both succeed.
func (s *Network) AcceptConnection(ctx context.Context, user *models.User, requesterID primitive.ObjectID) error {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return orNotFound(err, "User not found", "load requester")
	}
	promoted, err := s.users.PromotePending(ctx, user.ID, requesterID)
	if err != nil {
		return errors.Wrap(err, "promote pending request")
	}
	if !promoted {
		current, err := s.users.FindByID(ctx, user.ID)
		if err != nil {
			return orNotFound(err, "User not found", "reload accepting user")
		}
		if !current.IsConnectedTo(requesterID) {
			return NotFound("No pending request from this user")
		}
		// A previous accept got past the first write; finish the other side.
		repaired, err := s.users.AddToSet(ctx, requesterID, repository.SetConnections, user.ID)
		if err != nil {
			return orNotFound(err, "User not found", "repair requester connections")
		}
		if !repaired {
			return nil
		}
		zap.S().Infof("[AcceptConnection] repaired connection %s -> %s", requesterID.Hex(), user.ID.Hex())
	} else {
		if _, err := s.users.AddToSet(ctx, requesterID, repository.SetConnections, user.ID); err != nil {
			return orNotFound(err, "User not found", "add requester connection")
		}
	}

	// A crossed request in the other direction is now moot.
	if _, err := s.users.Pull(ctx, requesterID, repository.SetPending, user.ID); err != nil {
		zap.S().Warnf("[AcceptConnection] clear crossed request: %v", err)
	}

	_, err = s.notifier.Notify(ctx, requesterID, &user.ID, models.NotifyConnectionAccepted,
		models.UserRef(user.ID), user.DisplayName()+" accepted your connection request")
	return err
}

func (s *Network) RejectConnection(ctx context.Context, user *models.User, requesterID primitive.ObjectID) error {
	removed, err := s.users.Pull(ctx, user.ID, repository.SetPending, requesterID)
	if err != nil {
		return orNotFound(err, "User not found", "reject request")
	}
	if !removed {
		return NotFound("No pending request from this user")
	}
	return nil
}

// Disconnect removes the edge from both sides. It is idempotent.
func (s *Network) Disconnect(ctx context.Context, user *models.User, otherID primitive.ObjectID) error {
	if user.ID == otherID {
		return Validation("You cannot disconnect from yourself")
	}
	if _, err := s.users.Pull(ctx, user.ID, repository.SetConnections, otherID); err != nil {
		return orNotFound(err, "User not found", "disconnect")
	}
	if _, err := s.users.Pull(ctx, otherID, repository.SetConnections, user.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(err, "disconnect other side")
	}
	return nil
}

// Follow notifies the target only when the edge is new.
func (s *Network) Follow(ctx context.Context, user *models.User, targetID primitive.ObjectID) error {
	if user.ID == targetID {
		return Validation("You cannot follow yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return orNotFound(err, "User not found", "load follow target")
	}

	added, err := s.users.AddToSet(ctx, user.ID, repository.SetFollowing, targetID)
	if err != nil {
		return errors.Wrap(err, "add following")
	}
	if _, err := s.users.AddToSet(ctx, targetID, repository.SetFollowers, user.ID); err != nil {
		return orNotFound(err, "User not found", "add follower")
	}
	if !added {
		return nil
	}

	_, err = s.notifier.Notify(ctx, targetID, &user.ID, models.NotifyFollow,
		models.UserRef(user.ID), user.DisplayName()+" started following you")
	return err
}

func (s *Network) Unfollow(ctx context.Context, user *models.User, targetID primitive.ObjectID) error {
	if _, err := s.users.Pull(ctx, user.ID, repository.SetFollowing, targetID); err != nil {
		return errors.Wrap(err, "remove following")
	}
	if _, err := s.users.Pull(ctx, targetID, repository.SetFollowers, user.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(err, "remove follower")
	}
	return nil
}

type DirectoryEntry struct {
	models.UserSummary
	Skills      []models.Skill `json:"skills"`
	IsConnected bool           `json:"isConnected"`
	IsPending   bool           `json:"isPending"`
	IsFollowing bool           `json:"isFollowing"`
}

// Directory lists up to 50 active users other than the viewer.
func (s *Network) Directory(ctx context.Context, viewer *models.User, search string) ([]DirectoryEntry, error) {
	notBanned := false
	users, err := s.users.Search(ctx, repository.UserFilter{
		Search:    search,
		Banned:    &notBanned,
		ExcludeID: &viewer.ID,
		Limit:     50,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}

	out := make([]DirectoryEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, DirectoryEntry{
			UserSummary: u.Summary(),
			Skills:      u.Skills,
			IsConnected: viewer.IsConnectedTo(u.ID),
			IsPending:   u.HasPendingFrom(viewer.ID),
			IsFollowing: viewer.IsFollowing(u.ID),
		})
	}
	return out, nil
}

type ConnectionsView struct {
	Connections []models.UserSummary `json:"connections"`
	Pending     []models.UserSummary `json:"pendingConnections"`
}

func (s *Network) Connections(ctx context.Context, viewerID primitive.ObjectID) (*ConnectionsView, error) {
	viewer, err := s.users.FindByID(ctx, viewerID)
	if err != nil {
		return nil, orNotFound(err, "User not found", "load viewer")
	}
	connections, err := s.summaries(ctx, viewer.Connections)
	if err != nil {
		return nil, err
	}
	pending, err := s.summaries(ctx, viewer.PendingConnections)
	if err != nil {
		return nil, err
	}
	return &ConnectionsView{Connections: connections, Pending: pending}, nil
}

func (s *Network) summaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	return resolveUsers(ctx, s.users, ids)
}

// resolveUsers keeps the order of ids and substitutes a placeholder for
// references that no longer resolve.
func resolveUsers(ctx context.Context, users repository.UserRepository, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	byID, err := userIndex(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, summaryOf(byID, id))
	}
	return out, nil
}

func userIndex(ctx context.Context, users repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve users")
	}
	byID := make(map[primitive.ObjectID]*models.User, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	return byID, nil
}

func summaryOf(byID map[primitive.ObjectID]*models.User, id primitive.ObjectID) models.UserSummary {
	if u, ok := byID[id]; ok {
		return u.Summary()
	}
	return models.UnknownUser(id)
}
