package contract

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// fakeClientIdentity stands in for the cid package's certificate-backed identity.
type fakeClientIdentity struct {
	id    string
	mspID string
}

func (f *fakeClientIdentity) GetID() (string, error) { return f.id, nil }

func (f *fakeClientIdentity) GetMSPID() (string, error) { return f.mspID, nil }

func (f *fakeClientIdentity) GetAttributeValue(string) (string, bool, error) { return "", false, nil }

func (f *fakeClientIdentity) AssertAttributeValue(attrName, attrValue string) error {
	return fmt.Errorf("attribute '%s' not present", attrName)
}

func (f *fakeClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, errors.New("no certificate in fake identity")
}

// principalFor builds a client identity ID the way cid.GetID encodes it.
func principalFor(cn string) string {
	raw := fmt.Sprintf("x509::CN=%s,OU=client,O=Org1::CN=ca.org1.example.com,O=org1.example.com", cn)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

type emittedEvent struct {
	Name    string
	Payload []byte
}

// ledgerHarness drives the contract against a MockStub, one transaction per call to as.
type ledgerHarness struct {
	stub  *shimtest.MockStub
	now   time.Time
	txSeq int
}

func newLedgerHarness() *ledgerHarness {
	return &ledgerHarness{
		stub: shimtest.NewMockStub("accessregistry", nil),
		now:  time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

// as opens a new transaction at the harness clock with principal as the caller.
// Events left over from the previous transaction are discarded.
func (h *ledgerHarness) as(principal string) contractapi.TransactionContextInterface {
	h.drainEvents()
	h.txSeq++
	h.stub.MockTransactionStart(fmt.Sprintf("tx-%d", h.txSeq))
	h.stub.TxTimestamp = timestamppb.New(h.now)

	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(&fakeClientIdentity{id: principal, mspID: "Org1MSP"})
	return ctx
}

func (h *ledgerHarness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *ledgerHarness) drainEvents() []emittedEvent {
	var events []emittedEvent
	for {
		select {
		case ev := <-h.stub.ChaincodeEventsChannel:
			events = append(events, emittedEvent{Name: ev.EventName, Payload: ev.Payload})
		default:
			return events
		}
	}
}

// decodeEvent unmarshals the payload into out.
func decodeEvent(ev emittedEvent, out interface{}) error {
	return json.Unmarshal(ev.Payload, out)
}
