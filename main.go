package main

import (
	"accessregistry/config"
	"accessregistry/contract"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("accessregistry")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading configuration: " + err.Error())
	}

	cc, err := contractapi.NewChaincode(&contract.AccessRegistryContract{})
	if err != nil {
		panic("Error creating AccessRegistryContract: " + err.Error())
	}
	cc.Info.Title = "AccessRegistry"
	cc.Info.Version = cfg.ContractVersion

	if !cfg.IsServerMode() {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.CCID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: shim.TLSProperties{Disabled: true},
	}
	material, err := cfg.LoadTLSMaterial()
	if err != nil {
		panic("Error loading TLS material: " + err.Error())
	}
	if material != nil {
		server.TLSProps = shim.TLSProperties{
			Disabled:      false,
			Key:           material.Key,
			Cert:          material.Cert,
			ClientCACerts: material.ClientCA,
		}
	}
	logger.Infof("Starting chaincode server %s on %s (TLS disabled: %t)", cfg.CCID, cfg.ServerAddress, cfg.TLSDisabled)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}
