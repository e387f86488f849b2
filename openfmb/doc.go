// Package openfmb names OpenFMB profile topics and decodes their payloads.
//
// Every OpenFMB message travels on a four-level topic:
//
//	openfmb.{module}.{profile}.{mRID}
//
// e.g. openfmb.metermodule.MeterReadingProfile.8a3c5f5e-... where the mRID
// identifies the publishing device. The catalogue of modules and profiles
// is closed; ParseTopic rejects anything outside it.
//
// ProfileEncoding lets one bus carry several profiles: the Registry maps
// each profile to its generated protobuf type and the delivery topic
// selects which one to decode into.
//
//	reg := openfmb.NewRegistry()
//	_ = reg.Register(openfmb.MeterReadingProfile, func() proto.Message { return new(metermodule.MeterReadingProfile) })
//	b := bus.New(conn, openfmb.ProfileEncoding{Registry: reg})
//	sub, _ := b.Subscribe(ctx, openfmb.Topics{}.Module(openfmb.MeterModule))
package openfmb
