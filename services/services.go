// Package services holds the domain operations. Each service takes its
// collaborators explicitly; Services wires them over one store.
package services

import "networked/repository"

type Services struct {
	Store     *repository.Store
	Notifier  *Notifier
	Accounts  *Accounts
	Network   *Network
	Content   *Content
	Messaging *Messaging
	Jobs      *Jobs
	Counters  *Counters
	Admin     *Admin
}

// New builds every service over store. pusher may be nil.
func New(store *repository.Store, pusher Pusher) *Services {
	notifier := NewNotifier(store.Notifications, pusher)
	content := NewContent(store.Posts, store.Users, notifier)
	messaging := NewMessaging(store.Conversations, store.Messages, store.Users, store.Jobs, notifier)
	return &Services{
		Store:     store,
		Notifier:  notifier,
		Accounts:  NewAccounts(store.Users),
		Network:   NewNetwork(store.Users, notifier),
		Content:   content,
		Messaging: messaging,
		Jobs:      NewJobs(store.Jobs, store.Users, messaging, notifier),
		Counters:  NewCounters(store),
		Admin:     NewAdmin(store, content, notifier),
	}
}
