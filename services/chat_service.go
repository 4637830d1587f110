// Package services exposes the thin facade the transport and console
// collaborate with instead of reaching into the router and registry.
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
)

type IChatService interface {
	Join(name string, sink contract.MessageSink) error
	Leave(name string)
	PostMessage(sender, content string)
	PostPrivate(sender, recipient, content string)
	PostSystem(content string)
	UserList() string
	Status() (int, []string)
}

type ChatService struct {
	router   contract.IRouter
	registry contract.IRegistry
}

func NewChatService(router contract.IRouter, registry contract.IRegistry) *ChatService {
	return &ChatService{router: router, registry: registry}
}

func (s *ChatService) Join(name string, sink contract.MessageSink) error {
	return s.router.Join(name, sink)
}

func (s *ChatService) Leave(name string) {
	s.router.Leave(name)
}

func (s *ChatService) PostMessage(sender, content string) {
	s.router.Broadcast(sender, content, domain.TypeChat)
}

func (s *ChatService) PostPrivate(sender, recipient, content string) {
	s.router.PrivateSend(sender, recipient, content)
}

func (s *ChatService) PostSystem(content string) {
	s.router.Broadcast(domain.ServerSender, content, domain.TypeSystem)
}

func (s *ChatService) UserList() string {
	return domain.FormatUserList(s.registry.Names())
}

// Status reports the online-user count and names for operator queries.
func (s *ChatService) Status() (int, []string) {
	return s.registry.Size(), s.registry.Names()
}
