package activesync

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

const policyTypeWBXML = "MS-EAS-Provisioning-WBXML"

// HeaderPolicyKey is the EAS policy key response header.
const HeaderPolicyKey = "X-MS-PolicyKey"

// handleProvision runs the two-step policy exchange. Step 1 hands out a
// fresh temporary key; step 2 (client quoting that key) marks the device
// provisioned and issues the final key.
func (s *activeSyncService) handleProvision(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleProvision")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if root.Tag != provision(wbxml.ProvisionProvision) {
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected Provision, got %s", root.Tag)
	}
	policyType := policyTypeWBXML
	if policies := root.Child(provision(wbxml.ProvisionPolicies)); policies != nil {
		if policy := policies.Child(provision(wbxml.ProvisionPolicy)); policy != nil {
			if t := policy.ChildText(provision(wbxml.ProvisionPolicyType)); t != "" {
				policyType = t
			}
		}
	}

	device := req.Device
	acknowledging := req.PolicyKey != "" && req.PolicyKey != "0"

	if acknowledging && req.PolicyKey == device.PolicyKey && device.Provision == models.ProvisionStatePending {
		// Step 2: the client echoed the temporary key. Rotate to the final
		// key and open the gate.
		finalKey := newPolicyKey()
		device.PolicyKey = finalKey
		device.Provision = models.ProvisionStateProvisioned
		if err := s.repos.DeviceRepository.Save(ctx, device); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		s.log.Infof("device %s provisioned for principal %d", device.DeviceID, req.Principal.ID)
		return s.provisionResponse(policyType, finalKey, false)
	}

	// Step 1 (or an unknown key, which restarts the exchange): issue a
	// temporary key and wait for the acknowledgment.
	if acknowledging {
		s.log.Warnf("device %s quoted unknown policy key, restarting provision", device.DeviceID)
	}
	tempKey := newPolicyKey()
	device.PolicyKey = tempKey
	device.Provision = models.ProvisionStatePending
	if err := s.repos.DeviceRepository.Save(ctx, device); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return s.provisionResponse(policyType, tempKey, true)
}

func (s *activeSyncService) provisionResponse(policyType, policyKey string, withData bool) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(provision(wbxml.ProvisionProvision)).
		TextTag(provision(wbxml.ProvisionStatus), "1").
		StartTag(provision(wbxml.ProvisionPolicies)).
		StartTag(provision(wbxml.ProvisionPolicy)).
		TextTag(provision(wbxml.ProvisionPolicyType), policyType).
		TextTag(provision(wbxml.ProvisionStatus), "1").
		TextTag(provision(wbxml.ProvisionPolicyKey), policyKey)
	if withData {
		enc.StartTag(provision(wbxml.ProvisionData)).
			EmptyTag(provision(wbxml.ProvisionEASProvisionDoc)).
			EndTag()
	}
	enc.EndTag(). // Policy
			EndTag(). // Policies
			EndTag()  // Provision

	resp, err := wbxmlResponse(enc)
	if err != nil {
		return nil, err
	}
	resp.Headers = map[string]string{HeaderPolicyKey: policyKey}
	return resp, nil
}

// newPolicyKey returns a random nonzero 32-bit key as a decimal string.
// "0" is reserved for "not provisioned" and never issued.
func newPolicyKey() string {
	for {
		u := uuid.New()
		k := binary.BigEndian.Uint32(u[:4])
		if k != 0 {
			return strconv.FormatUint(uint64(k), 10)
		}
	}
}
