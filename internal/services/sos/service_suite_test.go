package sos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	cachemocks "github.com/BearBump/VeinLine/internal/cache/mocks"
	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"

	sosmocks "github.com/BearBump/VeinLine/internal/services/sos/mocks"
)

type ServiceSuite struct {
	suite.Suite

	repo  *sosmocks.MockRepository
	cache *cachemocks.MockBytesCache
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &sosmocks.MockRepository{}
	s.cache = &cachemocks.MockBytesCache{}
	s.svc = New(Deps{
		Repo:       s.repo,
		Matcher:    &fakeMatcher{},
		Notifier:   &fakeNotifier{},
		Donors:     fakeDonors{},
		Phones:     &fakeContacts{},
		Senders:    fakeResolver{"+919800000010": 10},
		TokenCache: s.cache,
	}, Config{TokenCacheTTL: time.Hour})
}

func (s *ServiceSuite) TestCreateRequest_RepoErrorPropagates() {
	boom := errors.New("db down")
	s.repo.On("CreateRequest", mock.Anything, mock.MatchedBy(func(r *models.SOSRequest) bool {
		return r.Status == models.SOSStatusOpen && len(r.SMSReplyToken) == 16
	})).Return(boom).Once()

	_, err := s.svc.CreateRequest(context.Background(), patient, CreateRequestInput{BloodGroupNeeded: "B-", UnitsNeeded: 1, City: "Delhi"})
	s.Require().ErrorIs(err, boom)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestInbound_TokenCacheHit_SkipsTokenQuery() {
	req := &models.SOSRequest{ID: 5, RequesterID: 1, Status: models.SOSStatusOpen, SMSReplyToken: "abcdabcdabcdabcd"}
	s.cache.On("Get", mock.Anything, "sos:token:abcdabcdabcdabcd").Return([]byte("5"), true, nil).Once()
	s.repo.On("GetRequest", mock.Anything, uint64(5)).Return(req, nil)
	s.repo.On("EnsurePendingResponses", mock.Anything, uint64(5), []uint64{10}, models.ResponseChannelSMS).
		Return([]models.ResponseRef{{DonorID: 10, ResponseID: 77, Created: true}}, nil).Once()
	s.repo.On("GetResponse", mock.Anything, uint64(77)).
		Return(&models.SOSResponse{ID: 77, RequestID: 5, DonorID: 10, Response: models.ResponsePending}, nil).Once()
	s.repo.On("SaveResponseDecision", mock.Anything, mock.MatchedBy(func(r *models.SOSResponse) bool {
		return r.Response == models.ResponseNo && r.Channel == models.ResponseChannelSMS && !r.DonorConsentedToShareContact
	})).Return(nil).Once()

	out, err := s.svc.HandleInboundSMS(context.Background(), InboundSMS{FromPhone: "+919800000010", Message: "no share ABCDABCDABCDABCD"})
	s.Require().NoError(err)
	s.Require().Equal(uint64(77), out.ResponseID)

	s.repo.AssertNotCalled(s.T(), "GetRequestByToken", mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "GetOrCreateTracker", mock.Anything, mock.Anything, mock.Anything)
	s.repo.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestInbound_TokenCacheMiss_FillsCache() {
	req := &models.SOSRequest{ID: 6, RequesterID: 1, Status: models.SOSStatusOpen, SMSReplyToken: "0123456789abcdef"}
	s.cache.On("Get", mock.Anything, "sos:token:0123456789abcdef").Return(nil, false, nil).Once()
	s.repo.On("GetRequestByToken", mock.Anything, "0123456789abcdef").Return(req, nil).Once()
	s.cache.On("Set", mock.Anything, "sos:token:0123456789abcdef", []byte("6"), time.Hour).Return(nil).Once()
	s.repo.On("EnsurePendingResponses", mock.Anything, uint64(6), []uint64{10}, models.ResponseChannelSMS).
		Return(nil, errors.New("tx aborted")).Once()

	_, err := s.svc.HandleInboundSMS(context.Background(), InboundSMS{FromPhone: "+919800000010", Message: "YES 0123456789abcdef"})
	s.Require().EqualError(err, "tx aborted")
	s.cache.AssertExpectations(s.T())
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestInbound_CacheErrorFallsBackToStore() {
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down")).Once()
	s.repo.On("GetRequestByToken", mock.Anything, "ffffffffffffffff").Return(nil, domainerr.ErrNotFound).Once()

	_, err := s.svc.HandleInboundSMS(context.Background(), InboundSMS{FromPhone: "+919800000010", Message: "YES ffffffffffffffff"})
	s.Require().ErrorIs(err, domainerr.ErrInvalidToken)
	s.cache.AssertNotCalled(s.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCancel_LostRaceIsValidationError() {
	req := &models.SOSRequest{ID: 3, RequesterID: 1, Status: models.SOSStatusOpen}
	s.repo.On("GetRequest", mock.Anything, uint64(3)).Return(req, nil).Once()
	s.repo.On("UpdateRequestStatus", mock.Anything, uint64(3), models.SOSStatusOpen, models.SOSStatusCancelled, mock.Anything).
		Return(false, nil).Once()

	_, err := s.svc.CancelRequest(context.Background(), patient, 3)
	s.Require().ErrorIs(err, domainerr.ErrValidation)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestRevealContact_StoreErrorPropagates() {
	s.repo.On("GetResponse", mock.Anything, uint64(9)).
		Return(&models.SOSResponse{ID: 9, RequestID: 3, DonorID: 10, DonorConsentedToShareContact: true}, nil).Once()
	s.repo.On("GetRequest", mock.Anything, uint64(3)).Return(&models.SOSRequest{ID: 3, RequesterID: 1}, nil).Once()
	s.repo.On("MarkContactRevealed", mock.Anything, uint64(9), mock.Anything).Return(nil, errors.New("conn reset")).Once()

	_, err := s.svc.RevealContact(context.Background(), patient, 9)
	s.Require().EqualError(err, "conn reset")
}

func (s *ServiceSuite) TestRevealContact_ConsentWithdrawnBeforeWrite() {
	s.repo.On("GetResponse", mock.Anything, uint64(9)).
		Return(&models.SOSResponse{ID: 9, RequestID: 3, DonorID: 10, DonorConsentedToShareContact: true}, nil).Once()
	s.repo.On("GetRequest", mock.Anything, uint64(3)).Return(&models.SOSRequest{ID: 3, RequesterID: 1}, nil).Once()
	s.repo.On("MarkContactRevealed", mock.Anything, uint64(9), mock.Anything).Return(nil, domainerr.ErrConsentRequired).Once()

	view, err := s.svc.RevealContact(context.Background(), patient, 9)
	s.Require().ErrorIs(err, domainerr.ErrConsentRequired)
	s.Require().Nil(view)
	s.repo.AssertExpectations(s.T())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
